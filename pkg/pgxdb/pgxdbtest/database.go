package pgxdbtest

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for pgtestdb
	"github.com/peterldowns/pgtestdb"
	"github.com/peterldowns/pgtestdb/migrators/sqlmigrator"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"

	"github.com/trillium/shinobi/pkg/pgxdb"
)

// Config is the pgtestdb server every test database is created on
func Config() pgtestdb.Config {
	return pgtestdb.Config{
		DriverName: "pgx",
		User:       "shinobi",
		Password:   "shinobi",
		Host:       "localhost",
		Port:       "5432",
		Options:    "sslmode=disable",
	}
}

// CreateTestDatabase creates a test database with migrations applied.
// Returns the connection pool and database URL for further connections.
func CreateTestDatabase(t *testing.T, migrationsDir string) (*pgxpool.Pool, string) {
	t.Helper()

	source := &migrate.FileMigrationSource{Dir: migrationsDir}
	migrationSet := &migrate.MigrationSet{TableName: "schema_migrations"}
	migrator := sqlmigrator.New(source, migrationSet)

	dbURL := pgtestdb.Custom(t, Config(), migrator).URL()
	t.Logf("testdbconf: %s", dbURL)

	pool, err := pgxdb.NewConnectionWithConfig(t.Context(), dbURL, pgxdb.TestPoolConfig())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool, dbURL
}

// InitializeCheckpoint records poolID as the last stored pool.
// Scraper tests use it to start from a known checkpoint.
func InitializeCheckpoint(t *testing.T, testDB *pgxpool.Pool, poolID string) {
	t.Helper()

	_, err := testDB.Exec(t.Context(), "INSERT INTO shinobi_checkpoint (single_row, pool_id) VALUES (TRUE, $1)", poolID)
	require.NoError(t, err)
}
