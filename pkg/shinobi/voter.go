package shinobi

import (
	"fmt"

	"github.com/trillium/shinobi/pkg/bincode"
)

// Presence records which of the validator-info strings the producer embedded.
// Their content is published elsewhere, so only presence is kept.
type Presence struct {
	Name       bool `json:"name" yaml:"name"`
	IconURL    bool `json:"icon_url" yaml:"icon_url"`
	Details    bool `json:"details" yaml:"details"`
	WebsiteURL bool `json:"website_url" yaml:"website_url"`
	City       bool `json:"city" yaml:"city"`
	Country    bool `json:"country" yaml:"country"`
}

// VoterDetails is the part of a voter record shared by pool and non-pool voters
type VoterDetails struct {
	Presence        Presence `json:"presence" yaml:"presence"`
	Stake           Stake    `json:"stake" yaml:"stake"`
	TargetPoolStake uint64   `json:"target_pool_stake" yaml:"target_pool_stake"`
	RawScore        Score    `json:"raw_score" yaml:"raw_score"`
	NormalizedScore Score    `json:"normalized_score" yaml:"normalized_score"`
	TotalScore      float64  `json:"total_score" yaml:"total_score"`
}

// PoolVoterRecord is a validator that is part of the pool
type PoolVoterRecord struct {
	Details   VoterDetails `json:"details" yaml:"details"`
	PoolStake Stake        `json:"pool_stake" yaml:"pool_stake"`
	Reasons   Reasons      `json:"noneligibility_reasons" yaml:"noneligibility_reasons"`
}

// NonPoolVoterRecord is a validator outside the pool
type NonPoolVoterRecord struct {
	Details VoterDetails `json:"details" yaml:"details"`
	Reasons Reasons      `json:"noneligibility_reasons" yaml:"noneligibility_reasons"`
}

// DecodeVoterDetails reads the shared voter layout.
//
// The presence-flagged strings are consumed but not decoded. A presence flag
// or string prefix that cannot be read leaves no safe way to find the stake
// that follows, so it fails the whole record with ErrRecordDecode. Every later
// member defaults to zero on its own.
func DecodeVoterDetails(c *bincode.Cursor, version uint8, isPool bool) (VoterDetails, error) {
	var d VoterDetails

	strs := []struct {
		field string
		dst   *bool
	}{
		{"details.name", &d.Presence.Name},
		{"details.icon_url", &d.Presence.IconURL},
		{"details.details", &d.Presence.Details},
		{"details.website_url", &d.Presence.WebsiteURL},
		{"details.city", &d.Presence.City},
		{"details.country", &d.Presence.Country},
	}
	for _, s := range strs {
		c.SetField(s.field)
		present, err := c.ReadBool()
		if err != nil {
			return VoterDetails{}, fmt.Errorf("%w: %s presence: %w", ErrRecordDecode, s.field, err)
		}
		if !present {
			continue
		}
		if err := c.SkipString(); err != nil {
			return VoterDetails{}, fmt.Errorf("%w: %s: %w", ErrRecordDecode, s.field, err)
		}
		*s.dst = true
	}

	d.Stake = decodeStake(c, "details.stake")
	d.TargetPoolStake = readOr(c, "details.target_pool_stake", c.ReadU64)
	d.RawScore = decodeScore(c, "details.raw_score", version, isPool)
	if version >= NormalizedScoreVersion {
		d.NormalizedScore = decodeScore(c, "details.normalized_score", version, isPool)
	} else {
		d.NormalizedScore = Score{HasVoteInclusion: d.RawScore.HasVoteInclusion}
	}
	d.TotalScore = readOr(c, "details.total_score", c.ReadF64)
	return d, nil
}

// DecodePoolVoterRecord reads details, pool stake and reasons
func DecodePoolVoterRecord(c *bincode.Cursor, version uint8) (PoolVoterRecord, error) {
	details, err := DecodeVoterDetails(c, version, true)
	if err != nil {
		return PoolVoterRecord{}, err
	}
	return PoolVoterRecord{
		Details:   details,
		PoolStake: decodeStake(c, "pool_stake"),
		Reasons:   decodeReasons(c),
	}, nil
}

// DecodeNonPoolVoterRecord reads details and reasons
func DecodeNonPoolVoterRecord(c *bincode.Cursor, version uint8) (NonPoolVoterRecord, error) {
	details, err := DecodeVoterDetails(c, version, false)
	if err != nil {
		return NonPoolVoterRecord{}, err
	}
	return NonPoolVoterRecord{
		Details: details,
		Reasons: decodeReasons(c),
	}, nil
}

// decodeReasons reads a counted reason list. The first reason that fails to
// decode ends the list; the ones before it are kept.
func decodeReasons(c *bincode.Cursor) Reasons {
	n := readOr(c, "noneligibility_count", c.ReadU64)
	n = clampCount(c, n, 8)

	var reasons Reasons
	for i := uint64(0); i < n; i++ {
		r, err := DecodeReason(c)
		if err != nil {
			c.Report(bincode.KindReasonRejected, bincode.SeverityWarn, err,
				"reason %d of %d rejected, keeping %d", i+1, n, len(reasons))
			break
		}
		reasons = append(reasons, r)
	}
	return reasons
}
