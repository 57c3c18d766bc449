//go:build acceptance

package migrator_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trillium/shinobi/migrator"
	"github.com/trillium/shinobi/migrator/migratortest"
	"github.com/trillium/shinobi/pkg/shinobi"
	"github.com/trillium/shinobi/pkg/shinobi/shinobitest"
	"github.com/trillium/shinobi/pkg/xshin"
)

const migrationsDir = "migrations"

func TestMigratorAcceptanceBehavior(t *testing.T) {
	t.Parallel()

	t.Run("it creates the schema and sets the initial checkpoint", func(t *testing.T) {
		t.Parallel()

		// Act
		pool := migratortest.CreateScraperTestDatabase(t, migrationsDir, "1000")

		// Assert
		assert.Equal(t, "1000", checkpoint(t, pool))
		assert.Zero(t, countRows(t, pool))
	})

	t.Run("it leaves an existing checkpoint alone when initializing", func(t *testing.T) {
		t.Parallel()

		// Arrange
		pool := migratortest.CreateScraperTestDatabase(t, migrationsDir, "1000")

		// Act
		err := migrator.InitializeCheckpoint(t.Context(), pool, "2000")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "1000", checkpoint(t, pool))
	})

	t.Run("it overwrites the checkpoint when setting it", func(t *testing.T) {
		t.Parallel()

		// Arrange
		pool := migratortest.CreateScraperTestDatabase(t, migrationsDir, "1000")

		// Act
		err := migrator.SetCheckpoint(t.Context(), pool, "2000")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "2000", checkpoint(t, pool))
	})

	t.Run("it seeds the newest archived pool", func(t *testing.T) {
		t.Parallel()

		// Arrange
		archiveDir := archiveWithPool(t, "1000")

		// Act
		pool := migratortest.CreateSeededTestDatabase(t, migrationsDir, archiveDir, 10*time.Second)

		// Assert
		assert.Equal(t, "1000", checkpoint(t, pool))
		assert.Equal(t, 2, countRows(t, pool))
	})

	t.Run("it rolls back the newest migration", func(t *testing.T) {
		t.Parallel()

		// Arrange
		pool := migratortest.CreateScraperTestDatabase(t, migrationsDir, "")

		// Act
		n, err := migrator.RollbackMigrations(pool, migrationsDir, 1)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		var exists bool
		require.NoError(t, pool.QueryRow(t.Context(), "SELECT to_regclass('shinobi_checkpoint') IS NOT NULL").Scan(&exists))
		assert.False(t, exists, "checkpoint table should be dropped")
	})
}

func archiveWithPool(t *testing.T, poolID string) string {
	t.Helper()

	details := shinobi.VoterDetails{Stake: shinobi.Stake{Active: 100}, TotalScore: 0.5}
	blobs := map[xshin.BlobKind][]byte{
		xshin.BlobOverview: shinobitest.Overview(shinobi.Overview{Epoch: 600}),
		xshin.BlobPool: shinobitest.Pool(shinobi.Pool{
			Version: shinobi.MaxVersion,
			Voters:  map[solana.PublicKey]shinobi.PoolVoterRecord{shinobitest.Pubkey(1): {Details: details}},
		}),
		xshin.BlobNonPoolVoters: shinobitest.NonPoolVoters(shinobi.NonPoolVoters{
			Version: shinobi.MaxVersion,
			Voters:  map[solana.PublicKey]shinobi.NonPoolVoterRecord{shinobitest.Pubkey(2): {Details: details}},
		}),
	}

	dir := t.TempDir()
	for kind, blob := range blobs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, xshin.ArchiveName(poolID, kind)), blob, 0o644))
	}
	return dir
}

func checkpoint(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	var poolID string
	require.NoError(t, pool.QueryRow(t.Context(), "SELECT pool_id FROM shinobi_checkpoint").Scan(&poolID))
	return poolID
}

func countRows(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(t.Context(), "SELECT COUNT(*) FROM shinobi_pool").Scan(&n))
	return n
}
