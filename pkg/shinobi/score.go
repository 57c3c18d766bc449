package shinobi

import (
	"github.com/trillium/shinobi/pkg/bincode"
)

// Schema versions that change the voter layout
const (
	VoteInclusionVersion   = 1
	NormalizedScoreVersion = 2
	MaxVersion             = 2
)

// Score is one set of per-metric values, raw or normalized
type Score struct {
	SkipRate           float64 `json:"skip_rate" yaml:"skip_rate"`
	PriorSkipRate      float64 `json:"prior_skip_rate" yaml:"prior_skip_rate"`
	SubsequentSkipRate float64 `json:"subsequent_skip_rate" yaml:"subsequent_skip_rate"`
	CU                 float64 `json:"cu" yaml:"cu"`
	Latency            float64 `json:"latency" yaml:"latency"`
	LLV                float64 `json:"llv" yaml:"llv"`
	CV                 float64 `json:"cv" yaml:"cv"`
	// VoteInclusion is only on the wire from version 1; HasVoteInclusion
	// tells an absent value from a zero one.
	VoteInclusion        float64 `json:"vote_inclusion" yaml:"vote_inclusion"`
	HasVoteInclusion     bool    `json:"has_vote_inclusion" yaml:"has_vote_inclusion"`
	APY                  float32 `json:"apy" yaml:"apy"`
	PoolExtraLamports    float64 `json:"pool_extra_lamports" yaml:"pool_extra_lamports"`
	CityConcentration    float64 `json:"city_concentration" yaml:"city_concentration"`
	CountryConcentration float64 `json:"country_concentration" yaml:"country_concentration"`
}

// DecodeScore reads a Score laid out for the given schema version.
//
// Vote inclusion occupies no bytes before version 1. APY always occupies four
// bytes but is only exposed for pool voters. Every member is defaulted to zero
// on a failed read.
func DecodeScore(c *bincode.Cursor, version uint8, isPool bool) Score {
	return decodeScore(c, "score", version, isPool)
}

func decodeScore(c *bincode.Cursor, prefix string, version uint8, isPool bool) Score {
	f64 := func(name string) float64 {
		return readOr(c, prefix+"."+name, c.ReadF64)
	}

	var s Score
	s.SkipRate = f64("skip_rate")
	s.PriorSkipRate = f64("prior_skip_rate")
	s.SubsequentSkipRate = f64("subsequent_skip_rate")
	s.CU = f64("cu")
	s.Latency = f64("latency")
	s.LLV = f64("llv")
	s.CV = f64("cv")

	if version >= VoteInclusionVersion {
		s.HasVoteInclusion = true
		s.VoteInclusion = f64("vote_inclusion")
	}

	if isPool {
		s.APY = readOr(c, prefix+".apy", c.ReadF32)
	} else {
		c.SetField(prefix + ".apy")
		if err := c.Skip(4); err != nil {
			c.Report(bincode.KindFieldDefaulted, bincode.SeverityWarn, err, "%s.apy padding missing", prefix)
		}
	}

	s.PoolExtraLamports = f64("pool_extra_lamports")
	s.CityConcentration = f64("city_concentration")
	s.CountryConcentration = f64("country_concentration")
	return s
}
