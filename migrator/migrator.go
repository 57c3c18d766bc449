package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/peterldowns/pgtestdb"
	"github.com/peterldowns/pgtestdb/migrators/sqlmigrator"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/trillium/shinobi/pkg/pgxdb"
	"github.com/trillium/shinobi/pkg/xshin"
	"github.com/trillium/shinobi/scraper"
	"github.com/trillium/shinobi/scraper/store/pgxstore"
)

// Migration constants
const (
	migrationsTableName = "schema_migrations"
	schemaHashPrefix    = "schema_only_"
	seededHashPrefix    = "seeded_archive_"
)

// SQL queries
const (
	initCheckpointSQL = `
		INSERT INTO shinobi_checkpoint (single_row, pool_id)
		VALUES (TRUE, $1)
		ON CONFLICT (single_row) DO NOTHING`

	setCheckpointSQL = `
		INSERT INTO shinobi_checkpoint (single_row, pool_id)
		VALUES (TRUE, $1)
		ON CONFLICT (single_row) DO UPDATE SET pool_id = EXCLUDED.pool_id, updated_at = CURRENT_TIMESTAMP`
)

// Migration-related errors
var (
	ErrMigrationExecution  = errors.New("migration execution failed")
	ErrCheckpointOperation = errors.New("checkpoint operation failed")
	ErrSeedFailed          = errors.New("seeding failed")
)

// SchemaMigrator applies only database schema migrations
// Used for production and tests that need schema-only setup
type SchemaMigrator struct {
	migrationsDir string
}

// NewSchemaMigrator creates a migrator that applies schema migrations only
func NewSchemaMigrator(migrationsDir string) *SchemaMigrator {
	return &SchemaMigrator{
		migrationsDir: migrationsDir,
	}
}

func (m *SchemaMigrator) Hash() (string, error) {
	baseHash, err := schemaHash(m.migrationsDir)
	if err != nil {
		return "", err
	}
	return schemaHashPrefix + baseHash, nil
}

func (m *SchemaMigrator) Migrate(ctx context.Context, db *sql.DB, conf pgtestdb.Config) error {
	return applyMigrations(db, m.migrationsDir)
}

// SeededMigrator applies schema migrations and then stores the newest pool
// found in a blob archive directory, the same way the scraper would.
type SeededMigrator struct {
	migrationsDir string
	archiveDir    string
	seedTimeout   time.Duration
}

// NewSeededMigrator creates a migrator that applies schema + replays an archived pool
func NewSeededMigrator(migrationsDir, archiveDir string, seedTimeout time.Duration) *SeededMigrator {
	return &SeededMigrator{
		migrationsDir: migrationsDir,
		archiveDir:    archiveDir,
		seedTimeout:   seedTimeout,
	}
}

func (m *SeededMigrator) Hash() (string, error) {
	baseHash, err := schemaHash(m.migrationsDir)
	if err != nil {
		return "", err
	}

	poolID, err := xshin.NewArchive(m.archiveDir).NewestPoolID(context.Background())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSeedFailed, err)
	}

	return seededHashPrefix + baseHash + "_" + poolID, nil
}

func (m *SeededMigrator) Migrate(ctx context.Context, db *sql.DB, conf pgtestdb.Config) error {
	if err := applyMigrations(db, m.migrationsDir); err != nil {
		return err
	}
	return m.seed(ctx, conf.URL())
}

// seed replays the newest archived pool into the template database
func (m *SeededMigrator) seed(ctx context.Context, dbURL string) error {
	slog.InfoContext(ctx, "Seeding database from blob archive",
		"archiveDir", m.archiveDir,
		"timeout", m.seedTimeout)

	seedCtx, cancel := context.WithTimeout(ctx, m.seedTimeout)
	defer cancel()

	pool, err := pgxdb.NewConnection(seedCtx, dbURL)
	if err != nil {
		return err
	}

	store, storeCloser := pgxstore.New(pool)
	defer storeCloser()

	service := scraper.NewService(xshin.NewArchive(m.archiveDir), store)
	events, done := service.Start(seedCtx)

	resultChan := make(chan error, 1)
	subscriberCloser := scraper.NewSubscriber(events,
		scraper.OnSyncCompleted(func(e scraper.SyncCompleted) {
			slog.InfoContext(seedCtx, "Seeding completed",
				"poolID", e.Result.PoolID,
				"epoch", e.Result.Epoch,
				"saved", e.Result.Saved)
			if e.Result.Failed > 0 {
				resultChan <- fmt.Errorf("%w: %d rows failed", ErrSeedFailed, e.Result.Failed)
			} else {
				resultChan <- nil
			}
			cancel()
		}),
		scraper.OnSyncFailed(func(e scraper.SyncFailed) {
			resultChan <- fmt.Errorf("%w: %w", ErrSeedFailed, e.Err)
			cancel()
		}),
	)
	defer subscriberCloser()

	<-done

	select {
	case err := <-resultChan:
		return err
	default:
		return fmt.Errorf("%w: %w", ErrSeedFailed, seedCtx.Err())
	}
}

// ApplyMigrations applies database migrations using sql-migrate with the provided pgx pool
func ApplyMigrations(pool *pgxpool.Pool, migrationsDir string) error {
	// Create sql.DB from the pgx pool for sql-migrate
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return applyMigrations(db, migrationsDir)
}

// RollbackMigrations reverts the last steps applied migrations and returns how many were reverted
func RollbackMigrations(pool *pgxpool.Pool, migrationsDir string, steps int) (int, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	source := &migrate.FileMigrationSource{Dir: migrationsDir}
	migrationSet := &migrate.MigrationSet{TableName: migrationsTableName}

	n, err := migrationSet.ExecMax(db, "postgres", source, migrate.Down, steps)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrMigrationExecution, err)
	}
	return n, nil
}

// InitializeCheckpoint records poolID as already stored unless a checkpoint exists
func InitializeCheckpoint(ctx context.Context, pool *pgxpool.Pool, poolID string) error {
	_, err := pool.Exec(ctx, initCheckpointSQL, poolID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpointOperation, err)
	}
	return nil
}

// SetCheckpoint records poolID as already stored, overwriting any existing value
func SetCheckpoint(ctx context.Context, pool *pgxpool.Pool, poolID string) error {
	_, err := pool.Exec(ctx, setCheckpointSQL, poolID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpointOperation, err)
	}
	return nil
}

func schemaHash(migrationsDir string) (string, error) {
	source := &migrate.FileMigrationSource{Dir: migrationsDir}
	migrationSet := &migrate.MigrationSet{TableName: migrationsTableName}

	hash, err := sqlmigrator.New(source, migrationSet).Hash()
	if err != nil {
		return "", fmt.Errorf("failed to calculate migration hash for %s: %w", migrationsDir, err)
	}
	return hash, nil
}

// applyMigrations applies database migrations using sql-migrate
func applyMigrations(db *sql.DB, migrationsDir string) error {
	source := &migrate.FileMigrationSource{Dir: migrationsDir}
	migrationSet := &migrate.MigrationSet{TableName: migrationsTableName}

	_, err := migrationSet.Exec(db, "postgres", source, migrate.Up)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationExecution, err)
	}
	return nil
}
