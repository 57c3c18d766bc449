package shinobi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/trillium/shinobi/pkg/bincode"
)

// MaxBlacklistReason bounds the blacklist explanation string
const MaxBlacklistReason = 256

// ReasonKind is the wire tag of a noneligibility reason
type ReasonKind uint64

const (
	ReasonBlacklisted ReasonKind = iota
	ReasonInSuperminority
	ReasonNotLeaderInRecentEpochs
	ReasonLowCreditsInRecentEpochs
	ReasonExcessiveDelinquencyInRecentEpochs
	ReasonSharedVoteAccounts
	ReasonCommissionTooHigh
	ReasonAPYTooLowInRecentEpochs
	ReasonInsufficientBranding
	ReasonInsufficientNonPoolStake
)

var reasonKindNames = [...]string{
	ReasonBlacklisted:                        "blacklisted",
	ReasonInSuperminority:                    "in_superminority",
	ReasonNotLeaderInRecentEpochs:            "not_leader_in_recent_epochs",
	ReasonLowCreditsInRecentEpochs:           "low_credits_in_recent_epochs",
	ReasonExcessiveDelinquencyInRecentEpochs: "excessive_delinquency_in_recent_epochs",
	ReasonSharedVoteAccounts:                 "shared_vote_accounts",
	ReasonCommissionTooHigh:                  "commission_too_high",
	ReasonAPYTooLowInRecentEpochs:            "apy_too_low_in_recent_epochs",
	ReasonInsufficientBranding:               "insufficient_branding",
	ReasonInsufficientNonPoolStake:           "insufficient_non_pool_stake",
}

func (k ReasonKind) String() string {
	if k < ReasonKind(len(reasonKindNames)) {
		return reasonKindNames[k]
	}
	return "reason(" + strconv.FormatUint(uint64(k), 10) + ")"
}

// Reason explains why a validator is excluded from the pool. The concrete
// types below are the only implementations.
type Reason interface {
	Kind() ReasonKind
	String() string
}

type (
	// Blacklisted carries the blacklist explanation, nil if it was unreadable
	Blacklisted struct{ Reason *string }
	// InSuperminority has no payload
	InSuperminority struct{}
	// NotLeaderInRecentEpochs lists the epochs without leader slots
	NotLeaderInRecentEpochs struct{ Epochs []uint64 }
	// LowCreditsInRecentEpochs lists the epochs with low vote credits
	LowCreditsInRecentEpochs struct{ Epochs []uint64 }
	// ExcessiveDelinquencyInRecentEpochs lists the delinquent epochs
	ExcessiveDelinquencyInRecentEpochs struct{ Epochs []uint64 }
	// SharedVoteAccounts has no payload
	SharedVoteAccounts struct{}
	// CommissionTooHigh carries the commission percentage
	CommissionTooHigh struct{ Commission uint8 }
	// APYTooLowInRecentEpochs lists the epochs with low APY
	APYTooLowInRecentEpochs struct{ Epochs []uint64 }
	// InsufficientBranding has no payload
	InsufficientBranding struct{}
	// InsufficientNonPoolStake has no payload
	InsufficientNonPoolStake struct{}
)

func (Blacklisted) Kind() ReasonKind                        { return ReasonBlacklisted }
func (InSuperminority) Kind() ReasonKind                    { return ReasonInSuperminority }
func (NotLeaderInRecentEpochs) Kind() ReasonKind            { return ReasonNotLeaderInRecentEpochs }
func (LowCreditsInRecentEpochs) Kind() ReasonKind           { return ReasonLowCreditsInRecentEpochs }
func (ExcessiveDelinquencyInRecentEpochs) Kind() ReasonKind { return ReasonExcessiveDelinquencyInRecentEpochs }
func (SharedVoteAccounts) Kind() ReasonKind                 { return ReasonSharedVoteAccounts }
func (CommissionTooHigh) Kind() ReasonKind                  { return ReasonCommissionTooHigh }
func (APYTooLowInRecentEpochs) Kind() ReasonKind            { return ReasonAPYTooLowInRecentEpochs }
func (InsufficientBranding) Kind() ReasonKind               { return ReasonInsufficientBranding }
func (InsufficientNonPoolStake) Kind() ReasonKind           { return ReasonInsufficientNonPoolStake }

// String keeps the stored text of a missing reason as "blacklisted (None)"
func (r Blacklisted) String() string {
	if r.Reason == nil {
		return "blacklisted (None)"
	}
	return "blacklisted (" + *r.Reason + ")"
}

func (InSuperminority) String() string { return "in superminority" }

func (r NotLeaderInRecentEpochs) String() string {
	return "not leader in recent epochs " + epochList(r.Epochs)
}

func (r LowCreditsInRecentEpochs) String() string {
	return "low credits in recent epochs " + epochList(r.Epochs)
}

func (r ExcessiveDelinquencyInRecentEpochs) String() string {
	return "excessive delinquency in recent epochs " + epochList(r.Epochs)
}

func (SharedVoteAccounts) String() string { return "shared vote accounts" }

func (r CommissionTooHigh) String() string {
	return fmt.Sprintf("commission too high: %d", r.Commission)
}

func (r APYTooLowInRecentEpochs) String() string {
	return "APY too low in recent epochs " + epochList(r.Epochs)
}

func (InsufficientBranding) String() string { return "insufficient branding" }

func (InsufficientNonPoolStake) String() string { return "insufficient non-pool stake" }

func epochList(epochs []uint64) string {
	parts := make([]string, len(epochs))
	for i, e := range epochs {
		parts[i] = strconv.FormatUint(e, 10)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ReasonDoc is the structured, serialisable view of a Reason
type ReasonDoc struct {
	Kind       string   `json:"kind" yaml:"kind"`
	Text       string   `json:"text" yaml:"text"`
	Reason     *string  `json:"reason,omitempty" yaml:"reason,omitempty"`
	Epochs     []uint64 `json:"epochs,omitempty" yaml:"epochs,omitempty"`
	Commission *uint8   `json:"commission,omitempty" yaml:"commission,omitempty"`
}

// Describe converts r into its serialisable view
func Describe(r Reason) ReasonDoc {
	doc := ReasonDoc{Kind: r.Kind().String(), Text: r.String()}
	switch v := r.(type) {
	case Blacklisted:
		doc.Reason = v.Reason
	case NotLeaderInRecentEpochs:
		doc.Epochs = v.Epochs
	case LowCreditsInRecentEpochs:
		doc.Epochs = v.Epochs
	case ExcessiveDelinquencyInRecentEpochs:
		doc.Epochs = v.Epochs
	case APYTooLowInRecentEpochs:
		doc.Epochs = v.Epochs
	case CommissionTooHigh:
		c := v.Commission
		doc.Commission = &c
	}
	return doc
}

// Reasons is a reason list that serialises to its structured view
type Reasons []Reason

// MarshalJSON encodes every reason as a ReasonDoc
func (rs Reasons) MarshalJSON() ([]byte, error) {
	return json.Marshal(rs.Docs())
}

// MarshalYAML encodes every reason as a ReasonDoc
func (rs Reasons) MarshalYAML() (any, error) {
	return rs.Docs(), nil
}

// Docs returns the structured view of every reason
func (rs Reasons) Docs() []ReasonDoc {
	docs := make([]ReasonDoc, len(rs))
	for i, r := range rs {
		docs[i] = Describe(r)
	}
	return docs
}

// Strings returns the human-readable form of every reason
func (rs Reasons) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String()
	}
	return out
}

// DecodeReason reads one tagged noneligibility reason. Tags outside 0-9 yield
// ErrUnknownReason; payload read failures are returned as is.
func DecodeReason(c *bincode.Cursor) (Reason, error) {
	c.SetField("noneligibility_reason")
	tag, err := c.ReadU64()
	if err != nil {
		return nil, err
	}

	kind := ReasonKind(tag)
	switch kind {
	case ReasonBlacklisted:
		c.SetField("noneligibility_reason.blacklisted")
		s, err := c.ReadString(MaxBlacklistReason)
		if err != nil {
			return nil, err
		}
		return Blacklisted{Reason: s}, nil
	case ReasonInSuperminority:
		return InSuperminority{}, nil
	case ReasonNotLeaderInRecentEpochs, ReasonLowCreditsInRecentEpochs,
		ReasonExcessiveDelinquencyInRecentEpochs, ReasonAPYTooLowInRecentEpochs:
		epochs, err := readEpochs(c, kind)
		if err != nil {
			return nil, err
		}
		return epochReason(kind, epochs), nil
	case ReasonSharedVoteAccounts:
		return SharedVoteAccounts{}, nil
	case ReasonCommissionTooHigh:
		c.SetField("noneligibility_reason.commission")
		commission, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		return CommissionTooHigh{Commission: commission}, nil
	case ReasonInsufficientBranding:
		return InsufficientBranding{}, nil
	case ReasonInsufficientNonPoolStake:
		return InsufficientNonPoolStake{}, nil
	}
	return nil, fmt.Errorf("%w: tag %d", ErrUnknownReason, tag)
}

func epochReason(kind ReasonKind, epochs []uint64) Reason {
	switch kind {
	case ReasonNotLeaderInRecentEpochs:
		return NotLeaderInRecentEpochs{Epochs: epochs}
	case ReasonLowCreditsInRecentEpochs:
		return LowCreditsInRecentEpochs{Epochs: epochs}
	case ReasonExcessiveDelinquencyInRecentEpochs:
		return ExcessiveDelinquencyInRecentEpochs{Epochs: epochs}
	default:
		return APYTooLowInRecentEpochs{Epochs: epochs}
	}
}

// readEpochs reads a counted epoch list. Each compact epoch takes at least one
// byte, which bounds the count.
func readEpochs(c *bincode.Cursor, kind ReasonKind) ([]uint64, error) {
	field := "noneligibility_reason." + kind.String()
	c.SetField(field)
	n, err := c.ReadU64()
	if err != nil {
		return nil, err
	}
	n = clampCount(c, n, 1)

	epochs := make([]uint64, 0, n)
	for i := uint64(0); i < n; i++ {
		e, err := c.ReadU64()
		if err != nil {
			return nil, fmt.Errorf("%s epoch %d: %w", field, i, err)
		}
		epochs = append(epochs, e)
	}
	return epochs, nil
}
