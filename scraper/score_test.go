package scraper_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trillium/shinobi/pkg/shinobi"
	"github.com/trillium/shinobi/pkg/shinobi/shinobitest"
	"github.com/trillium/shinobi/scraper"
)

func TestBuildScores(t *testing.T) {
	t.Parallel()

	t.Run("it orders rows by vote account", func(t *testing.T) {
		t.Parallel()

		// Arrange
		pool := &shinobi.Pool{Voters: map[solana.PublicKey]shinobi.PoolVoterRecord{
			shinobitest.Pubkey(9): {Details: details(0.9)},
			shinobitest.Pubkey(4): {Details: details(0.4)},
		}}
		nonPool := &shinobi.NonPoolVoters{Voters: map[solana.PublicKey]shinobi.NonPoolVoterRecord{
			shinobitest.Pubkey(6): {Details: details(0.6)},
		}}

		// Act
		rows := scraper.BuildScores(600, pool, nonPool)

		// Assert
		require.Len(t, rows, 3)
		assert.Equal(t, shinobitest.Pubkey(4), rows[0].VoteAccount)
		assert.Equal(t, shinobitest.Pubkey(6), rows[1].VoteAccount)
		assert.Equal(t, shinobitest.Pubkey(9), rows[2].VoteAccount)
	})

	t.Run("it copies scores, stakes and reasons", func(t *testing.T) {
		t.Parallel()

		// Arrange
		reasons := shinobi.Reasons{shinobi.InSuperminority{}}
		d := details(0.5)
		d.NormalizedScore.SkipRate = 0.99
		pool := &shinobi.Pool{Voters: map[solana.PublicKey]shinobi.PoolVoterRecord{
			shinobitest.Pubkey(1): {Details: d, PoolStake: shinobi.Stake{Active: 77, Activating: 1}, Reasons: reasons},
		}}

		// Act
		rows := scraper.BuildScores(601, pool, nil)

		// Assert
		require.Len(t, rows, 1)
		row := rows[0]
		assert.Equal(t, uint64(601), row.Epoch)
		assert.True(t, row.InPool)
		assert.Equal(t, 0.5, row.TotalScore)
		assert.Equal(t, 0.5, row.Raw.SkipRate)
		assert.Equal(t, 0.99, row.Normalized.SkipRate)
		assert.Equal(t, uint64(77), row.PoolStakeActive)
		assert.Equal(t, uint64(500), row.StakeActive)
		assert.Equal(t, uint64(50), row.TargetPoolStake)
		assert.Equal(t, []string{"in superminority"}, row.Reasons.Strings())
	})

	t.Run("it keeps a validator listed in both blobs as a pool member", func(t *testing.T) {
		t.Parallel()

		// Arrange
		key := shinobitest.Pubkey(5)
		pool := &shinobi.Pool{Voters: map[solana.PublicKey]shinobi.PoolVoterRecord{key: {Details: details(0.1)}}}
		nonPool := &shinobi.NonPoolVoters{Voters: map[solana.PublicKey]shinobi.NonPoolVoterRecord{key: {Details: details(0.2)}}}

		// Act
		rows := scraper.BuildScores(600, pool, nonPool)

		// Assert
		require.Len(t, rows, 1)
		assert.True(t, rows[0].InPool)
		assert.Equal(t, 0.1, rows[0].TotalScore)
	})

	t.Run("it returns nothing without voters", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, scraper.BuildScores(600, nil, nil))
	})
}

func TestOverlappingVoters(t *testing.T) {
	t.Parallel()

	t.Run("it lists keys present in both blobs in key order", func(t *testing.T) {
		t.Parallel()

		// Arrange
		pool := &shinobi.Pool{Voters: map[solana.PublicKey]shinobi.PoolVoterRecord{
			shinobitest.Pubkey(9): {},
			shinobitest.Pubkey(1): {},
			shinobitest.Pubkey(4): {},
		}}
		nonPool := &shinobi.NonPoolVoters{Voters: map[solana.PublicKey]shinobi.NonPoolVoterRecord{
			shinobitest.Pubkey(9): {},
			shinobitest.Pubkey(4): {},
			shinobitest.Pubkey(7): {},
		}}

		// Act
		keys := scraper.OverlappingVoters(pool, nonPool)

		// Assert
		assert.Equal(t, []solana.PublicKey{shinobitest.Pubkey(4), shinobitest.Pubkey(9)}, keys)
	})

	t.Run("it finds nothing when a blob is missing", func(t *testing.T) {
		t.Parallel()

		// Arrange
		nonPool := &shinobi.NonPoolVoters{Voters: map[solana.PublicKey]shinobi.NonPoolVoterRecord{shinobitest.Pubkey(1): {}}}

		// Act
		keys := scraper.OverlappingVoters(nil, nonPool)

		// Assert
		assert.Empty(t, keys)
	})
}
