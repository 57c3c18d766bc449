package shinobi

import (
	"fmt"

	"github.com/trillium/shinobi/pkg/bincode"
)

// OverviewVersion is the only overview layout understood
const OverviewVersion = 0

// Overview is the pool-wide summary for the current epoch
type Overview struct {
	Version       uint8   `json:"version" yaml:"version"`
	Price         float32 `json:"price" yaml:"price"`
	Epoch         uint64  `json:"epoch" yaml:"epoch"`
	EpochStart    uint64  `json:"epoch_start" yaml:"epoch_start"`
	EpochDuration uint64  `json:"epoch_duration" yaml:"epoch_duration"`
	PoolStake     Stake   `json:"pool_stake" yaml:"pool_stake"`
	Reserve       uint64  `json:"reserve" yaml:"reserve"`
	APY           float32 `json:"apy" yaml:"apy"`
}

// DecodeOverview decodes an overview blob. Every field except the stake
// members is mandatory, so any failed read aborts the blob.
func DecodeOverview(buf []byte, opts ...bincode.Option) (Overview, error) {
	c := bincode.NewCursor(buf, opts...)

	var o Overview
	version, err := readVersion(c)
	if err != nil {
		return Overview{}, err
	}
	if version != OverviewVersion {
		return Overview{}, fmt.Errorf("%w: overview version %d", ErrUnsupportedVersion, version)
	}
	o.Version = version

	head := []struct {
		field string
		read  func() error
	}{
		{"price", func() (err error) { o.Price, err = c.ReadF32(); return }},
		{"epoch", func() (err error) { o.Epoch, err = c.ReadU64(); return }},
		{"epoch_start", func() (err error) { o.EpochStart, err = c.ReadU64(); return }},
		{"epoch_duration", func() (err error) { o.EpochDuration, err = c.ReadU64(); return }},
	}
	tail := []struct {
		field string
		read  func() error
	}{
		{"reserve", func() (err error) { o.Reserve, err = c.ReadU64(); return }},
		{"apy", func() (err error) { o.APY, err = c.ReadF32(); return }},
	}

	for _, step := range head {
		c.SetField(step.field)
		if err := step.read(); err != nil {
			return Overview{}, fmt.Errorf("%w: overview %s: %w", ErrBlobDecode, step.field, err)
		}
	}
	o.PoolStake = decodeStake(c, "pool_stake")
	for _, step := range tail {
		c.SetField(step.field)
		if err := step.read(); err != nil {
			return Overview{}, fmt.Errorf("%w: overview %s: %w", ErrBlobDecode, step.field, err)
		}
	}
	return o, nil
}

func readVersion(c *bincode.Cursor) (uint8, error) {
	c.SetField("version")
	v, err := c.ReadU8()
	if err != nil {
		return 0, fmt.Errorf("%w: version: %w", ErrBlobDecode, err)
	}
	return v, nil
}

// checkVersion accepts the voter blob versions 0 through MaxVersion
func checkVersion(blob string, version uint8) error {
	if version > MaxVersion {
		return fmt.Errorf("%w: %s version %d", ErrUnsupportedVersion, blob, version)
	}
	return nil
}
