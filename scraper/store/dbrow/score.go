package dbrow

import (
	"encoding/json"
	"fmt"

	"github.com/trillium/shinobi/pkg/shinobi"
	"github.com/trillium/shinobi/scraper"
)

// Columns lists the shinobi_pool columns in the order Score.Args returns them
var Columns = []string{
	"vote_account_pubkey", "epoch", "total_score",
	"raw_skip_rate", "raw_prior_skip_rate", "raw_subsequent_skip_rate", "raw_cu",
	"raw_latency", "raw_llv", "raw_cv", "raw_apy", "raw_pool_extra_lamports",
	"raw_city_concentration", "raw_country_concentration", "raw_vote_inclusion",
	"normalized_skip_rate", "normalized_prior_skip_rate", "normalized_subsequent_skip_rate",
	"normalized_cu", "normalized_latency", "normalized_llv", "normalized_cv", "normalized_apy",
	"normalized_pool_extra_lamports", "normalized_city_concentration",
	"normalized_country_concentration", "normalized_vote_inclusion",
	"pool_stake_active", "stake_active", "target_pool_stake", "noneligibility_reasons",
	"in_pool",
}

// Metrics holds one Score's values as stored
type Metrics struct {
	SkipRate             float64
	PriorSkipRate        float64
	SubsequentSkipRate   float64
	CU                   float64
	Latency              float64
	LLV                  float64
	CV                   float64
	APY                  float64
	PoolExtraLamports    float64
	CityConcentration    float64
	CountryConcentration float64
	VoteInclusion        float64
}

// Score represents a validator score as stored in the shinobi_pool table
type Score struct {
	VoteAccount     string  `db:"vote_account_pubkey"`
	Epoch           uint64  `db:"epoch"`
	TotalScore      float64 `db:"total_score"`
	Raw             Metrics
	Normalized      Metrics
	PoolStakeActive uint64 `db:"pool_stake_active"`
	StakeActive     uint64 `db:"stake_active"`
	TargetPoolStake uint64 `db:"target_pool_stake"`
	Reasons         []byte `db:"noneligibility_reasons"`
	InPool          bool   `db:"in_pool"`
	// created_at and updated_at are handled by the database
}

// FromScraperScore converts a scraper row into its stored form.
// Reasons are stored as a JSON array of their display strings.
func FromScraperScore(s scraper.ValidatorScore) (Score, error) {
	reasons := s.Reasons.Strings()
	if reasons == nil {
		reasons = []string{}
	}
	encoded, err := json.Marshal(reasons)
	if err != nil {
		return Score{}, fmt.Errorf("encoding reasons: %w", err)
	}

	return Score{
		VoteAccount:     s.VoteAccount.String(),
		Epoch:           s.Epoch,
		TotalScore:      s.TotalScore,
		Raw:             metricsOf(s.Raw),
		Normalized:      metricsOf(s.Normalized),
		PoolStakeActive: s.PoolStakeActive,
		StakeActive:     s.StakeActive,
		TargetPoolStake: s.TargetPoolStake,
		Reasons:         encoded,
		InPool:          s.InPool,
	}, nil
}

// Args returns the values matching Columns
func (s Score) Args() []any {
	return []any{
		s.VoteAccount, s.Epoch, s.TotalScore,
		s.Raw.SkipRate, s.Raw.PriorSkipRate, s.Raw.SubsequentSkipRate, s.Raw.CU,
		s.Raw.Latency, s.Raw.LLV, s.Raw.CV, s.Raw.APY, s.Raw.PoolExtraLamports,
		s.Raw.CityConcentration, s.Raw.CountryConcentration, s.Raw.VoteInclusion,
		s.Normalized.SkipRate, s.Normalized.PriorSkipRate, s.Normalized.SubsequentSkipRate,
		s.Normalized.CU, s.Normalized.Latency, s.Normalized.LLV, s.Normalized.CV, s.Normalized.APY,
		s.Normalized.PoolExtraLamports, s.Normalized.CityConcentration,
		s.Normalized.CountryConcentration, s.Normalized.VoteInclusion,
		s.PoolStakeActive, s.StakeActive, s.TargetPoolStake, s.Reasons,
		s.InPool,
	}
}

func metricsOf(sc shinobi.Score) Metrics {
	return Metrics{
		SkipRate:             sc.SkipRate,
		PriorSkipRate:        sc.PriorSkipRate,
		SubsequentSkipRate:   sc.SubsequentSkipRate,
		CU:                   sc.CU,
		Latency:              sc.Latency,
		LLV:                  sc.LLV,
		CV:                   sc.CV,
		APY:                  float64(sc.APY),
		PoolExtraLamports:    sc.PoolExtraLamports,
		CityConcentration:    sc.CityConcentration,
		CountryConcentration: sc.CountryConcentration,
		VoteInclusion:        sc.VoteInclusion,
	}
}
