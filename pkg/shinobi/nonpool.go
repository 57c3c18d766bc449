package shinobi

import (
	"github.com/gagliardetto/solana-go"

	"github.com/trillium/shinobi/pkg/bincode"
)

// NonPoolVoters is a decoded non_pool_voters blob
type NonPoolVoters struct {
	Version uint8                                   `json:"version" yaml:"version"`
	Voters  map[solana.PublicKey]NonPoolVoterRecord `json:"voters" yaml:"-"`
	Stats   VoterStats                              `json:"stats" yaml:"stats"`
}

// DecodeNonPoolVoters decodes a non_pool_voters blob
func DecodeNonPoolVoters(buf []byte, opts ...bincode.Option) (NonPoolVoters, error) {
	c := bincode.NewCursor(buf, opts...)

	version, err := readVersion(c)
	if err != nil {
		return NonPoolVoters{}, err
	}
	if err := checkVersion("non_pool_voters", version); err != nil {
		return NonPoolVoters{}, err
	}

	voters, stats, err := decodeVoters(c, func(c *bincode.Cursor) (NonPoolVoterRecord, error) {
		return DecodeNonPoolVoterRecord(c, version)
	})
	if err != nil {
		return NonPoolVoters{}, err
	}
	return NonPoolVoters{Version: version, Voters: voters, Stats: stats}, nil
}
