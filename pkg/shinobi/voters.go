package shinobi

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/trillium/shinobi/pkg/bincode"
)

// VoterStats summarises one pass over a voter collection
type VoterStats struct {
	Declared   uint64 `json:"declared" yaml:"declared"`
	Decoded    int    `json:"decoded" yaml:"decoded"`
	Skipped    int    `json:"skipped" yaml:"skipped"`
	Duplicates int    `json:"duplicates" yaml:"duplicates"`
	// Truncated is set when a pubkey could not be read and the walk stopped early
	Truncated bool `json:"truncated" yaml:"truncated"`
}

// decodeVoters walks a counted (pubkey, record) collection.
//
// A record that fails to decode is reported and dropped, and the walk moves on
// to the next pubkey. A pubkey that cannot be read ends the walk, keeping what
// was decoded so far. A repeated pubkey replaces the earlier record.
func decodeVoters[T any](c *bincode.Cursor, decode func(*bincode.Cursor) (T, error)) (map[solana.PublicKey]T, VoterStats, error) {
	c.SetField("voters.count")
	declared, err := c.ReadU64()
	if err != nil {
		return nil, VoterStats{}, fmt.Errorf("%w: voter count: %w", ErrBlobDecode, err)
	}

	stats := VoterStats{Declared: declared}
	n := clampCount(c, declared, bincode.PubkeyLength)
	voters := make(map[solana.PublicKey]T, n)
	defer c.SetValidator("")

	for i := uint64(0); i < n; i++ {
		c.SetValidator("")
		c.SetField("voters.pubkey")
		key, err := c.ReadPubkey()
		if err != nil {
			c.Report(bincode.KindBufferExhausted, bincode.SeverityError, err,
				"voter %d of %d has no readable pubkey, stopping", i+1, n)
			stats.Truncated = true
			break
		}

		c.SetValidator(key.String())
		start := c.Offset()
		rec, err := decode(c)
		if err != nil {
			c.Report(bincode.KindRecordSkipped, bincode.SeverityError, err,
				"dropping record that started at offset %d", start)
			stats.Skipped++
			continue
		}

		if _, ok := voters[key]; ok {
			c.Report(bincode.KindDuplicateKey, bincode.SeverityInfo, nil, "pubkey seen before, keeping the later record")
			stats.Duplicates++
		}
		voters[key] = rec
		stats.Decoded++
	}
	return voters, stats, nil
}
