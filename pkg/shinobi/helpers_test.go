package shinobi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trillium/shinobi/pkg/bincode"
	"github.com/trillium/shinobi/pkg/shinobi"
)

// scoreFor builds a Score whose members are derived from base and whose
// optional members follow the layout of the given version.
func scoreFor(version uint8, isPool bool, base float64) shinobi.Score {
	s := shinobi.Score{
		SkipRate:             base + 0.01,
		PriorSkipRate:        base + 0.02,
		SubsequentSkipRate:   base + 0.03,
		CU:                   base + 0.04,
		Latency:              base + 0.05,
		LLV:                  base + 0.06,
		CV:                   base + 0.07,
		PoolExtraLamports:    base + 0.09,
		CityConcentration:    base + 0.10,
		CountryConcentration: base + 0.11,
	}
	if version >= shinobi.VoteInclusionVersion {
		s.HasVoteInclusion = true
		s.VoteInclusion = base + 0.08
	}
	if isPool {
		s.APY = float32(base) + 0.5
	}
	return s
}

func detailsFor(version uint8, isPool bool, base float64) shinobi.VoterDetails {
	raw := scoreFor(version, isPool, base)
	normalized := shinobi.Score{HasVoteInclusion: raw.HasVoteInclusion}
	if version >= shinobi.NormalizedScoreVersion {
		normalized = scoreFor(version, isPool, base/10)
	}
	return shinobi.VoterDetails{
		Presence:        shinobi.Presence{Name: true, WebsiteURL: true, Country: true},
		Stake:           shinobi.Stake{Active: 1_000_000 * uint64(base+1), Activating: 250, Deactivating: 70_000},
		TargetPoolStake: 5_000_000_000,
		RawScore:        raw,
		NormalizedScore: normalized,
		TotalScore:      base * 3,
	}
}

func poolRecord(version uint8, base float64, reasons ...shinobi.Reason) shinobi.PoolVoterRecord {
	return shinobi.PoolVoterRecord{
		Details:   detailsFor(version, true, base),
		PoolStake: shinobi.Stake{Active: 42_000_000_000},
		Reasons:   reasons,
	}
}

func nonPoolRecord(version uint8, base float64, reasons ...shinobi.Reason) shinobi.NonPoolVoterRecord {
	return shinobi.NonPoolVoterRecord{
		Details: detailsFor(version, false, base),
		Reasons: reasons,
	}
}

func strPtr(s string) *string { return &s }

func assertDiagnosed(t *testing.T, sink *bincode.Collector, kind bincode.Kind, want int) {
	t.Helper()
	assert.Equal(t, want, sink.Count(kind), "diagnostics of kind %s: %v", kind, sink.Diagnostics())
}

func requireSingleDiagnostic(t *testing.T, sink *bincode.Collector, kind bincode.Kind) bincode.Diagnostic {
	t.Helper()
	var found []bincode.Diagnostic
	for _, d := range sink.Diagnostics() {
		if d.Kind == kind {
			found = append(found, d)
		}
	}
	require.Len(t, found, 1, "diagnostics: %v", sink.Diagnostics())
	return found[0]
}
