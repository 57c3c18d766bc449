package shinobi

import (
	"github.com/trillium/shinobi/pkg/bincode"
)

// Stake is an amount of lamports in each activation state
type Stake struct {
	Active       uint64 `json:"active" yaml:"active"`
	Activating   uint64 `json:"activating" yaml:"activating"`
	Deactivating uint64 `json:"deactivating" yaml:"deactivating"`
}

// DecodeStake reads three compact u64 values. A failed member is reported and
// left at zero; the next member is read from the unchanged offset.
func DecodeStake(c *bincode.Cursor) Stake {
	return decodeStake(c, "stake")
}

func decodeStake(c *bincode.Cursor, prefix string) Stake {
	var s Stake
	s.Active = readOr(c, prefix+".active", c.ReadU64)
	s.Activating = readOr(c, prefix+".activating", c.ReadU64)
	s.Deactivating = readOr(c, prefix+".deactivating", c.ReadU64)
	return s
}

// readOr runs read under the given field name and substitutes the zero value
// on failure.
func readOr[T any](c *bincode.Cursor, field string, read func() (T, error)) T {
	c.SetField(field)
	v, err := read()
	if err != nil {
		c.Report(bincode.KindFieldDefaulted, bincode.SeverityWarn, err, "%s defaulted to zero", field)
		var zero T
		return zero
	}
	return v
}

// clampCount bounds a declared collection size by what the remaining buffer
// could possibly hold at minWidth bytes per element.
func clampCount(c *bincode.Cursor, declared uint64, minWidth int) uint64 {
	limit := uint64(c.Remaining() / minWidth)
	if declared <= limit {
		return declared
	}
	c.Report(bincode.KindCountClamped, bincode.SeverityWarn, nil,
		"declared count %d exceeds %d remaining bytes, clamped to %d", declared, c.Remaining(), limit)
	return limit
}
