// Package shinobitest encodes decoded shinobi values back into blobs so tests
// can describe their input in domain terms.
package shinobitest

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"

	"github.com/trillium/shinobi/pkg/bincode/bincodetest"
	"github.com/trillium/shinobi/pkg/shinobi"
)

// Pubkey returns a key whose 32 bytes all equal seed
func Pubkey(seed byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = seed
	}
	return pk
}

// Overview encodes an overview blob
func Overview(o shinobi.Overview) []byte {
	b := bincodetest.New().U8(o.Version).F32(o.Price).U64(o.Epoch).U64(o.EpochStart).U64(o.EpochDuration)
	AppendStake(b, o.PoolStake)
	return b.U64(o.Reserve).F32(o.APY).Bytes()
}

// Pool encodes a pool blob. Voters are written in key order.
func Pool(p shinobi.Pool) []byte {
	b := bincodetest.New().U8(p.Version).U64(p.ValidatorCount)
	for _, arr := range p.BestMetrics {
		appendMetrics(b, arr)
	}
	if p.Version >= shinobi.VoteInclusionVersion {
		appendMetrics(b, p.BestVoteInclusion)
	}
	b.U64(uint64(len(p.BestAPY)))
	for _, e := range p.BestAPY {
		b.Pubkey(e.Voter).F32(e.Value).U64(e.Detail)
	}
	for _, arr := range p.BestConcentration {
		appendMetrics(b, arr)
	}

	keys := sortedKeys(p.Voters)
	b.U64(uint64(len(keys)))
	for _, k := range keys {
		b.Pubkey(k)
		AppendPoolVoter(b, p.Voters[k], p.Version)
	}
	return b.Bytes()
}

// PoolHeader encodes a pool blob up to, but excluding, the voter count, with
// every metric array empty.
func PoolHeader(version uint8) *bincodetest.Builder {
	b := bincodetest.New().U8(version).U64(0)
	arrays := shinobi.BestMetricArrays + 1 + shinobi.BestConcentrationArrays
	if version >= shinobi.VoteInclusionVersion {
		arrays++
	}
	for i := 0; i < arrays; i++ {
		b.U64(0)
	}
	return b
}

// NonPoolVoters encodes a non_pool_voters blob. Voters are written in key order.
func NonPoolVoters(n shinobi.NonPoolVoters) []byte {
	b := bincodetest.New().U8(n.Version)
	keys := sortedKeys(n.Voters)
	b.U64(uint64(len(keys)))
	for _, k := range keys {
		b.Pubkey(k)
		AppendNonPoolVoter(b, n.Voters[k], n.Version)
	}
	return b.Bytes()
}

// AppendStake encodes a Stake
func AppendStake(b *bincodetest.Builder, s shinobi.Stake) *bincodetest.Builder {
	return b.U64(s.Active).U64(s.Activating).U64(s.Deactivating)
}

// AppendScore encodes a Score in the layout of the given version
func AppendScore(b *bincodetest.Builder, s shinobi.Score, version uint8, isPool bool) *bincodetest.Builder {
	b.F64(s.SkipRate).F64(s.PriorSkipRate).F64(s.SubsequentSkipRate).F64(s.CU).F64(s.Latency).F64(s.LLV).F64(s.CV)
	if version >= shinobi.VoteInclusionVersion {
		b.F64(s.VoteInclusion)
	}
	if isPool {
		b.F32(s.APY)
	} else {
		b.F32(0)
	}
	return b.F64(s.PoolExtraLamports).F64(s.CityConcentration).F64(s.CountryConcentration)
}

// AppendVoterDetails encodes VoterDetails. Present strings carry a short
// placeholder payload.
func AppendVoterDetails(b *bincodetest.Builder, d shinobi.VoterDetails, version uint8, isPool bool) *bincodetest.Builder {
	for _, present := range []bool{
		d.Presence.Name, d.Presence.IconURL, d.Presence.Details,
		d.Presence.WebsiteURL, d.Presence.City, d.Presence.Country,
	} {
		b.Bool(present)
		if present {
			b.String("redundant")
		}
	}
	AppendStake(b, d.Stake)
	b.U64(d.TargetPoolStake)
	AppendScore(b, d.RawScore, version, isPool)
	if version >= shinobi.NormalizedScoreVersion {
		AppendScore(b, d.NormalizedScore, version, isPool)
	}
	return b.F64(d.TotalScore)
}

// AppendPoolVoter encodes a PoolVoterRecord
func AppendPoolVoter(b *bincodetest.Builder, r shinobi.PoolVoterRecord, version uint8) *bincodetest.Builder {
	AppendVoterDetails(b, r.Details, version, true)
	AppendStake(b, r.PoolStake)
	return AppendReasons(b, r.Reasons)
}

// AppendNonPoolVoter encodes a NonPoolVoterRecord
func AppendNonPoolVoter(b *bincodetest.Builder, r shinobi.NonPoolVoterRecord, version uint8) *bincodetest.Builder {
	AppendVoterDetails(b, r.Details, version, false)
	return AppendReasons(b, r.Reasons)
}

// AppendReasons encodes a counted reason list
func AppendReasons(b *bincodetest.Builder, rs []shinobi.Reason) *bincodetest.Builder {
	b.U64(uint64(len(rs)))
	for _, r := range rs {
		AppendReason(b, r)
	}
	return b
}

// AppendReason encodes one tagged reason
func AppendReason(b *bincodetest.Builder, r shinobi.Reason) *bincodetest.Builder {
	b.U64(uint64(r.Kind()))
	switch v := r.(type) {
	case shinobi.Blacklisted:
		if v.Reason == nil {
			panic("shinobitest: blacklisted reason needs a payload")
		}
		b.String(*v.Reason)
	case shinobi.NotLeaderInRecentEpochs:
		appendEpochs(b, v.Epochs)
	case shinobi.LowCreditsInRecentEpochs:
		appendEpochs(b, v.Epochs)
	case shinobi.ExcessiveDelinquencyInRecentEpochs:
		appendEpochs(b, v.Epochs)
	case shinobi.APYTooLowInRecentEpochs:
		appendEpochs(b, v.Epochs)
	case shinobi.CommissionTooHigh:
		b.U8(v.Commission)
	case shinobi.InSuperminority, shinobi.SharedVoteAccounts,
		shinobi.InsufficientBranding, shinobi.InsufficientNonPoolStake:
	default:
		panic(fmt.Sprintf("shinobitest: unexpected reason %T", r))
	}
	return b
}

func appendEpochs(b *bincodetest.Builder, epochs []uint64) {
	b.U64(uint64(len(epochs)))
	for _, e := range epochs {
		b.U64(e)
	}
}

func appendMetrics(b *bincodetest.Builder, entries []shinobi.MetricEntry) {
	b.U64(uint64(len(entries)))
	for _, e := range entries {
		b.Pubkey(e.Voter).F64(e.Value).U64(e.Detail)
	}
}

func sortedKeys[T any](m map[solana.PublicKey]T) []solana.PublicKey {
	keys := make([]solana.PublicKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })
	return keys
}
