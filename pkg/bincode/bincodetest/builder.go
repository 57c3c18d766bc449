// Package bincodetest encodes blobs the way the xshin producer does, for use in tests.
package bincodetest

import (
	"encoding/binary"
	"math"

	"github.com/gagliardetto/solana-go"

	"github.com/trillium/shinobi/pkg/bincode"
)

// Builder appends encoded values to a byte slice
type Builder struct {
	buf []byte
}

// New creates an empty Builder
func New() *Builder {
	return &Builder{}
}

// Bytes returns the encoded blob
func (b *Builder) Bytes() []byte {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}

// Len returns the number of bytes written so far
func (b *Builder) Len() int { return len(b.buf) }

// Raw appends bytes verbatim
func (b *Builder) Raw(p ...byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

// U8 appends a raw byte
func (b *Builder) U8(v uint8) *Builder {
	return b.Raw(v)
}

// Bool appends 0 or 1
func (b *Builder) Bool(v bool) *Builder {
	if v {
		return b.Raw(1)
	}
	return b.Raw(0)
}

// U16 appends v in the shortest compact form
func (b *Builder) U16(v uint16) *Builder {
	return b.U64(uint64(v))
}

// U32 appends v in the shortest compact form
func (b *Builder) U32(v uint32) *Builder {
	return b.U64(uint64(v))
}

// U64 appends v in the shortest compact form
func (b *Builder) U64(v uint64) *Builder {
	switch {
	case v <= bincode.MaxLiteral:
		return b.Raw(byte(v))
	case v <= math.MaxUint16:
		return b.Wide16(uint16(v))
	case v <= math.MaxUint32:
		return b.Wide32(uint32(v))
	default:
		return b.Wide64(v)
	}
}

// Wide16 appends the 251 marker and a LE u16 regardless of magnitude
func (b *Builder) Wide16(v uint16) *Builder {
	b.buf = append(b.buf, bincode.MarkerU16)
	b.buf = binary.LittleEndian.AppendUint16(b.buf, v)
	return b
}

// Wide32 appends the 252 marker and a LE u32 regardless of magnitude
func (b *Builder) Wide32(v uint32) *Builder {
	b.buf = append(b.buf, bincode.MarkerU32)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
	return b
}

// Wide64 appends the 253 marker and a LE u64 regardless of magnitude
func (b *Builder) Wide64(v uint64) *Builder {
	b.buf = append(b.buf, bincode.MarkerU64)
	b.buf = binary.LittleEndian.AppendUint64(b.buf, v)
	return b
}

// F32 appends a LE float32
func (b *Builder) F32(v float32) *Builder {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, math.Float32bits(v))
	return b
}

// F64 appends a LE float64
func (b *Builder) F64(v float64) *Builder {
	b.buf = binary.LittleEndian.AppendUint64(b.buf, math.Float64bits(v))
	return b
}

// String appends a compact length prefix and the raw bytes of s
func (b *Builder) String(s string) *Builder {
	b.U32(uint32(len(s)))
	b.buf = append(b.buf, s...)
	return b
}

// Pubkey appends the 32 key bytes
func (b *Builder) Pubkey(pk solana.PublicKey) *Builder {
	b.buf = append(b.buf, pk[:]...)
	return b
}
