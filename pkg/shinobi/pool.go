package shinobi

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/trillium/shinobi/pkg/bincode"
)

// Metric array shapes in a pool blob
const (
	BestMetricArrays        = 9
	BestConcentrationArrays = 2

	// metricEntryWidth is the clamp divisor for every metric array
	metricEntryWidth = 24
)

// MetricEntry is one ranked entry of a best-metric array
type MetricEntry struct {
	Voter  solana.PublicKey `json:"voter" yaml:"voter"`
	Value  float64          `json:"value" yaml:"value"`
	Detail uint64           `json:"detail" yaml:"detail"`
}

// APYEntry is one ranked entry of the best-APY array
type APYEntry struct {
	Voter  solana.PublicKey `json:"voter" yaml:"voter"`
	Value  float32          `json:"value" yaml:"value"`
	Detail uint64           `json:"detail" yaml:"detail"`
}

// Pool is a decoded pool blob
type Pool struct {
	Version        uint8  `json:"version" yaml:"version"`
	ValidatorCount uint64 `json:"validator_count" yaml:"validator_count"`

	BestMetrics [BestMetricArrays][]MetricEntry `json:"best_metrics" yaml:"best_metrics"`
	// BestVoteInclusion is nil before version 1
	BestVoteInclusion []MetricEntry                          `json:"best_vote_inclusion" yaml:"best_vote_inclusion"`
	BestAPY           []APYEntry                             `json:"best_apy" yaml:"best_apy"`
	BestConcentration [BestConcentrationArrays][]MetricEntry `json:"best_concentration" yaml:"best_concentration"`

	Voters map[solana.PublicKey]PoolVoterRecord `json:"voters" yaml:"-"`
	Stats  VoterStats                           `json:"stats" yaml:"stats"`
}

// DecodePool decodes a pool blob.
//
// The version, the validator count and every metric array are mandatory; a
// failure in any of them aborts the blob. Voter records are decoded one by one
// and a bad record only drops itself.
func DecodePool(buf []byte, opts ...bincode.Option) (Pool, error) {
	c := bincode.NewCursor(buf, opts...)

	version, err := readVersion(c)
	if err != nil {
		return Pool{}, err
	}
	if err := checkVersion("pool", version); err != nil {
		return Pool{}, err
	}

	p := Pool{Version: version}
	c.SetField("validator_count")
	if p.ValidatorCount, err = c.ReadU64(); err != nil {
		return Pool{}, fmt.Errorf("%w: validator_count: %w", ErrBlobDecode, err)
	}

	for i := range p.BestMetrics {
		if p.BestMetrics[i], err = decodeMetricArray(c, fmt.Sprintf("best_metrics[%d]", i), readMetricEntry); err != nil {
			return Pool{}, err
		}
	}
	if version >= VoteInclusionVersion {
		if p.BestVoteInclusion, err = decodeMetricArray(c, "best_vote_inclusion", readMetricEntry); err != nil {
			return Pool{}, err
		}
	}
	if p.BestAPY, err = decodeMetricArray(c, "best_apy", readAPYEntry); err != nil {
		return Pool{}, err
	}
	for i := range p.BestConcentration {
		if p.BestConcentration[i], err = decodeMetricArray(c, fmt.Sprintf("best_concentration[%d]", i), readMetricEntry); err != nil {
			return Pool{}, err
		}
	}

	p.Voters, p.Stats, err = decodeVoters(c, func(c *bincode.Cursor) (PoolVoterRecord, error) {
		return DecodePoolVoterRecord(c, version)
	})
	if err != nil {
		return Pool{}, err
	}
	return p, nil
}

func decodeMetricArray[T any](c *bincode.Cursor, field string, read func(*bincode.Cursor) (T, error)) ([]T, error) {
	c.SetField(field)
	declared, err := c.ReadU64()
	if err != nil {
		return nil, fmt.Errorf("%w: %s count: %w", ErrBlobDecode, field, err)
	}
	n := clampCount(c, declared, metricEntryWidth)

	entries := make([]T, 0, n)
	for i := uint64(0); i < n; i++ {
		e, err := read(c)
		if err != nil {
			return nil, fmt.Errorf("%w: %s entry %d: %w", ErrBlobDecode, field, i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func readMetricEntry(c *bincode.Cursor) (MetricEntry, error) {
	var (
		e   MetricEntry
		err error
	)
	if e.Voter, err = c.ReadPubkey(); err != nil {
		return MetricEntry{}, err
	}
	if e.Value, err = c.ReadF64(); err != nil {
		return MetricEntry{}, err
	}
	if e.Detail, err = c.ReadU64(); err != nil {
		return MetricEntry{}, err
	}
	return e, nil
}

func readAPYEntry(c *bincode.Cursor) (APYEntry, error) {
	var (
		e   APYEntry
		err error
	)
	if e.Voter, err = c.ReadPubkey(); err != nil {
		return APYEntry{}, err
	}
	if e.Value, err = c.ReadF32(); err != nil {
		return APYEntry{}, err
	}
	if e.Detail, err = c.ReadU64(); err != nil {
		return APYEntry{}, err
	}
	return e, nil
}
