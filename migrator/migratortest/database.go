package migratortest

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for pgtestdb
	"github.com/peterldowns/pgtestdb"
	"github.com/stretchr/testify/require"

	"github.com/trillium/shinobi/migrator"
	"github.com/trillium/shinobi/pkg/pgxdb"
	"github.com/trillium/shinobi/pkg/pgxdb/pgxdbtest"
)

// CreateScraperTestDatabase creates a test database with migrations applied and
// the checkpoint set to initialPoolID, the way production is prepared.
// An empty initialPoolID leaves the checkpoint unset.
func CreateScraperTestDatabase(t *testing.T, migrationsDir string, initialPoolID string) *pgxpool.Pool {
	t.Helper()

	pool := createTestDatabaseWithMigrator(t, migrator.NewSchemaMigrator(migrationsDir))
	if initialPoolID != "" {
		require.NoError(t, migrator.InitializeCheckpoint(t.Context(), pool, initialPoolID))
	}
	return pool
}

// CreateSeededTestDatabase creates a test database with migrations applied and
// the newest pool of archiveDir stored.
func CreateSeededTestDatabase(t *testing.T, migrationsDir, archiveDir string, seedTimeout time.Duration) *pgxpool.Pool {
	t.Helper()

	return createTestDatabaseWithMigrator(t, migrator.NewSeededMigrator(migrationsDir, archiveDir, seedTimeout))
}

func createTestDatabaseWithMigrator(t *testing.T, migratorInstance pgtestdb.Migrator) *pgxpool.Pool {
	t.Helper()

	dbConfig := pgtestdb.Custom(t, pgxdbtest.Config(), migratorInstance)
	t.Logf("testdbconf: %s", dbConfig.URL())

	pool, err := pgxdb.NewConnectionWithConfig(t.Context(), dbConfig.URL(), pgxdb.TestPoolConfig())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}
