package scraper

import (
	"bytes"
	"sort"

	"github.com/gagliardetto/solana-go"

	"github.com/trillium/shinobi/pkg/shinobi"
)

// ValidatorScore is one stored row: a validator's scores for an epoch
type ValidatorScore struct {
	VoteAccount     solana.PublicKey
	Epoch           uint64
	InPool          bool
	TotalScore      float64
	Raw             shinobi.Score
	Normalized      shinobi.Score
	PoolStakeActive uint64
	StakeActive     uint64
	TargetPoolStake uint64
	Reasons         shinobi.Reasons
}

// BuildScores flattens the decoded voter blobs into rows for epoch.
// Either blob may be nil. A validator present in both is kept as a pool member.
// Rows are ordered by vote account.
func BuildScores(epoch uint64, pool *shinobi.Pool, nonPool *shinobi.NonPoolVoters) []ValidatorScore {
	var rows []ValidatorScore
	seen := make(map[solana.PublicKey]struct{})

	if pool != nil {
		for key, rec := range pool.Voters {
			row := newScore(key, epoch, rec.Details, rec.Reasons)
			row.InPool = true
			row.PoolStakeActive = rec.PoolStake.Active
			rows = append(rows, row)
			seen[key] = struct{}{}
		}
	}

	if nonPool != nil {
		for key, rec := range nonPool.Voters {
			if _, ok := seen[key]; ok {
				continue
			}
			rows = append(rows, newScore(key, epoch, rec.Details, rec.Reasons))
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		return bytes.Compare(rows[i].VoteAccount[:], rows[j].VoteAccount[:]) < 0
	})
	return rows
}

// OverlappingVoters returns the vote accounts listed in both blobs, ordered by key
func OverlappingVoters(pool *shinobi.Pool, nonPool *shinobi.NonPoolVoters) []solana.PublicKey {
	if pool == nil || nonPool == nil {
		return nil
	}
	var keys []solana.PublicKey
	for key := range nonPool.Voters {
		if _, ok := pool.Voters[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	return keys
}

func newScore(key solana.PublicKey, epoch uint64, d shinobi.VoterDetails, reasons shinobi.Reasons) ValidatorScore {
	return ValidatorScore{
		VoteAccount:     key,
		Epoch:           epoch,
		TotalScore:      d.TotalScore,
		Raw:             d.RawScore,
		Normalized:      d.NormalizedScore,
		StakeActive:     d.Stake.Active,
		TargetPoolStake: d.TargetPoolStake,
		Reasons:         reasons,
	}
}
