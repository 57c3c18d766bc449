// Package bincode implements the bounds-checked cursor used to decode the
// compact binary blobs published by the xshin pool scoring service.
//
// Unsigned integers use a variable-width scheme: a lead byte up to 250 is the
// value itself, while 251, 252 and 253 announce a little-endian u16, u32 or
// u64 payload. Every read checks the remaining buffer before consuming
// anything, so a failed read leaves the offset where it was.
package bincode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
)

// Compact integer lead bytes
const (
	MaxLiteral = 250
	MarkerU16  = 251
	MarkerU32  = 252
	MarkerU64  = 253
)

// PubkeyLength is the width of an encoded public key
const PubkeyLength = 32

// DefaultMaxString is the string clamp used when the caller has no better bound
const DefaultMaxString = 256

// Sentinel errors for primitive reads
var (
	ErrBufferExhausted = errors.New("buffer exhausted")
	ErrInvalidBool     = errors.New("invalid bool")
)

// Option configures a Cursor
type Option func(*Cursor)

// WithSink routes the cursor's diagnostics to s
func WithSink(s Sink) Option {
	return func(c *Cursor) {
		if s != nil {
			c.sink = s
		}
	}
}

// Cursor is a read position over an owned buffer plus the context that is
// attached to every diagnostic it reports.
type Cursor struct {
	buf       []byte
	off       int
	field     string
	validator string
	sink      Sink
}

// NewCursor creates a Cursor at offset zero. Diagnostics are discarded unless
// a sink is supplied with WithSink.
func NewCursor(buf []byte, opts ...Option) *Cursor {
	c := &Cursor{buf: buf, sink: Discard}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Offset returns the number of bytes consumed so far
func (c *Cursor) Offset() int { return c.off }

// Len returns the total buffer length
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining returns the number of unread bytes
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

// Field returns the name of the field being decoded
func (c *Cursor) Field() string { return c.field }

// SetField sets the field name attached to diagnostics
func (c *Cursor) SetField(name string) { c.field = name }

// Validator returns the key of the validator being decoded, if any
func (c *Cursor) Validator() string { return c.validator }

// SetValidator sets the validator key attached to diagnostics
func (c *Cursor) SetValidator(key string) { c.validator = key }

// Report emits a diagnostic stamped with the current offset, field and validator
func (c *Cursor) Report(kind Kind, severity Severity, err error, format string, args ...any) {
	c.sink.Report(Diagnostic{
		Kind:      kind,
		Severity:  severity,
		Offset:    c.off,
		Field:     c.field,
		Validator: c.validator,
		Message:   fmt.Sprintf(format, args...),
		Err:       err,
	})
}

func (c *Cursor) exhausted(want int) error {
	return fmt.Errorf("%w: need %d bytes at offset %d, have %d (field %q)",
		ErrBufferExhausted, want, c.off, c.Remaining(), c.field)
}

// take consumes n bytes or nothing at all
func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, c.exhausted(n)
	}
	p := c.buf[c.off : c.off+n]
	c.off += n
	return p, nil
}

func (c *Cursor) peek() (byte, error) {
	if c.Remaining() < 1 {
		return 0, c.exhausted(1)
	}
	return c.buf[c.off], nil
}

// Skip advances over n bytes
func (c *Cursor) Skip(n int) error {
	_, err := c.take(n)
	return err
}

// ReadU8 reads one raw byte
func (c *Cursor) ReadU8() (uint8, error) {
	p, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// ReadBool reads a 0/1 byte. Any other value yields false and ErrInvalidBool
// without consuming the byte; the offending offset is reported.
func (c *Cursor) ReadBool() (bool, error) {
	b, err := c.peek()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		c.off++
		return false, nil
	case 1:
		c.off++
		return true, nil
	}
	err = fmt.Errorf("%w: value %d at offset %d", ErrInvalidBool, b, c.off)
	c.Report(KindInvalidBool, SeverityError, err, "bool byte %d is not 0 or 1, defaulting to false", b)
	return false, err
}

// readCompact decodes a compact integer recognising markers up to maxMarker.
// Lead bytes that are not recognised markers are returned as literal values.
func (c *Cursor) readCompact(maxMarker byte) (uint64, error) {
	lead, err := c.peek()
	if err != nil {
		return 0, err
	}

	var width int
	switch {
	case lead == MarkerU16 && maxMarker >= MarkerU16:
		width = 2
	case lead == MarkerU32 && maxMarker >= MarkerU32:
		width = 4
	case lead == MarkerU64 && maxMarker >= MarkerU64:
		width = 8
	default:
		c.off++
		return uint64(lead), nil
	}

	p, err := c.take(1 + width)
	if err != nil {
		return 0, err
	}
	p = p[1:]

	switch width {
	case 2:
		return uint64(binary.LittleEndian.Uint16(p)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(p)), nil
	default:
		return binary.LittleEndian.Uint64(p), nil
	}
}

// ReadU16 reads a compact u16 (literal or 251 marker)
func (c *Cursor) ReadU16() (uint16, error) {
	v, err := c.readCompact(MarkerU16)
	return uint16(v), err
}

// ReadU32 reads a compact u32 (literal, 251 or 252 marker)
func (c *Cursor) ReadU32() (uint32, error) {
	v, err := c.readCompact(MarkerU32)
	return uint32(v), err
}

// ReadU64 reads a compact u64 (literal, 251, 252 or 253 marker)
func (c *Cursor) ReadU64() (uint64, error) {
	return c.readCompact(MarkerU64)
}

// ReadF32 reads a little-endian IEEE-754 single
func (c *Cursor) ReadF32() (float32, error) {
	p, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(p)), nil
}

// ReadF64 reads a little-endian IEEE-754 double
func (c *Cursor) ReadF64() (float64, error) {
	p, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(p)), nil
}

// ReadString reads a length-prefixed UTF-8 string.
//
// Only a failure to read the length prefix is returned as an error. The
// declared length is first clamped to maxBytes and only then compared with the
// remaining buffer; a clamped length that still does not fit yields nil and
// consumes nothing past the prefix. A declared length that fits is consumed in
// full. One that only fits after clamping consumes maxBytes. A clamped value
// is cut back to a rune boundary. Invalid UTF-8 yields nil. Each of these
// cases is reported to the sink.
func (c *Cursor) ReadString(maxBytes int) (*string, error) {
	declared, err := c.ReadU32()
	if err != nil {
		return nil, err
	}

	n := uint64(declared)
	if n > uint64(maxBytes) {
		n = uint64(maxBytes)
	}
	if n > uint64(c.Remaining()) {
		c.Report(KindString, SeverityWarn, nil, "string length %d exceeds remaining %d bytes", n, c.Remaining())
		return nil, nil
	}

	consume := int(n)
	if uint64(declared) <= uint64(c.Remaining()) {
		consume = int(declared)
	}
	payload, _ := c.take(consume)
	if uint64(declared) > uint64(maxBytes) {
		payload = truncateUTF8(payload[:n], maxBytes)
		c.Report(KindString, SeverityWarn, nil, "string length %d exceeds max %d, truncated", declared, maxBytes)
	}
	if !utf8.Valid(payload) {
		c.Report(KindString, SeverityError, nil, "invalid UTF-8 in %d byte string", declared)
		return nil, nil
	}

	s := string(payload)
	return &s, nil
}

// SkipString consumes a length-prefixed string without decoding it. The
// length handling is the same as ReadString.
func (c *Cursor) SkipString() error {
	n, err := c.readStringLength()
	if err != nil {
		return err
	}
	if n < 0 {
		return nil
	}
	return c.Skip(n)
}

// readStringLength returns the declared length, or -1 when it cannot fit the
// remaining buffer.
func (c *Cursor) readStringLength() (int, error) {
	n, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	if uint64(n) > uint64(c.Remaining()) {
		c.Report(KindString, SeverityWarn, nil, "string length %d exceeds remaining %d bytes", n, c.Remaining())
		return -1, nil
	}
	return int(n), nil
}

// ReadPubkey reads a 32 byte public key
func (c *Cursor) ReadPubkey() (solana.PublicKey, error) {
	p, err := c.take(PubkeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(p), nil
}

// truncateUTF8 cuts b to at most limit bytes without splitting a rune
func truncateUTF8(b []byte, limit int) []byte {
	if limit < 0 {
		limit = 0
	}
	if len(b) <= limit {
		return b
	}
	b = b[:limit]
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			break
		}
	}
	return b
}
