package bincode_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trillium/shinobi/pkg/bincode"
	"github.com/trillium/shinobi/pkg/bincode/bincodetest"
)

func TestCursorCompactIntegers(t *testing.T) {
	t.Parallel()

	t.Run("it reads literal lead bytes as values", func(t *testing.T) {
		t.Parallel()

		// Arrange
		c := bincode.NewCursor([]byte{0, 250})

		// Act
		first, err1 := c.ReadU64()
		second, err2 := c.ReadU64()

		// Assert
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, uint64(0), first)
		assert.Equal(t, uint64(250), second)
		assert.Equal(t, 2, c.Offset())
	})

	t.Run("it decodes every marker recognised by the requested width", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name      string
			blob      []byte
			read      func(*bincode.Cursor) (uint64, error)
			want      uint64
			wantWidth int
		}{
			{"u16 via 251", bincodetest.New().Wide16(0x1234).Bytes(), readU16, 0x1234, 3},
			{"u32 via 251", bincodetest.New().Wide16(600).Bytes(), readU32, 600, 3},
			{"u32 via 252", bincodetest.New().Wide32(0xdeadbeef).Bytes(), readU32, 0xdeadbeef, 5},
			{"u64 via 251", bincodetest.New().Wide16(7).Bytes(), readU64, 7, 3},
			{"u64 via 252", bincodetest.New().Wide32(600).Bytes(), readU64, 600, 5},
			{"u64 via 253", bincodetest.New().Wide64(10_000_000_000).Bytes(), readU64, 10_000_000_000, 9},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				// Arrange
				c := bincode.NewCursor(tc.blob)

				// Act
				got, err := tc.read(c)

				// Assert
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
				assert.Equal(t, tc.wantWidth, c.Offset())
			})
		}
	})

	t.Run("it treats markers above its width as literal values", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			lead byte
			read func(*bincode.Cursor) (uint64, error)
		}{
			{"u16 sees 252", bincode.MarkerU32, readU16},
			{"u16 sees 253", bincode.MarkerU64, readU16},
			{"u16 sees 255", 255, readU16},
			{"u32 sees 253", bincode.MarkerU64, readU32},
			{"u64 sees 254", 254, readU64},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				// Arrange
				c := bincode.NewCursor([]byte{tc.lead, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})

				// Act
				got, err := tc.read(c)

				// Assert
				require.NoError(t, err)
				assert.Equal(t, uint64(tc.lead), got)
				assert.Equal(t, 1, c.Offset())
			})
		}
	})

	t.Run("it round-trips values encoded in their shortest form", func(t *testing.T) {
		t.Parallel()

		values := []uint64{0, 1, 250, 251, 252, 253, 255, 256, 65535, 65536, 1<<32 - 1, 1 << 32, 1<<64 - 1}
		b := bincodetest.New()
		for _, v := range values {
			b.U64(v)
		}
		c := bincode.NewCursor(b.Bytes())

		for _, want := range values {
			got, err := c.ReadU64()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		assert.Equal(t, 0, c.Remaining())
	})

	t.Run("it leaves the offset unchanged when the payload is truncated", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			blob []byte
			read func(*bincode.Cursor) (uint64, error)
		}{
			{"u16 marker with one payload byte", []byte{bincode.MarkerU16, 0x01}, readU16},
			{"u32 marker with three payload bytes", []byte{bincode.MarkerU32, 1, 2, 3}, readU32},
			{"u64 marker with seven payload bytes", []byte{bincode.MarkerU64, 1, 2, 3, 4, 5, 6, 7}, readU64},
			{"empty buffer", nil, readU64},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				// Arrange
				c := bincode.NewCursor(tc.blob)

				// Act
				_, err := tc.read(c)

				// Assert
				require.ErrorIs(t, err, bincode.ErrBufferExhausted)
				assert.Equal(t, 0, c.Offset())
			})
		}
	})
}

func TestCursorFixedWidth(t *testing.T) {
	t.Parallel()

	t.Run("it reads little-endian floats", func(t *testing.T) {
		t.Parallel()

		// Arrange
		c := bincode.NewCursor(bincodetest.New().F32(1.5).F64(-0.25).Bytes())

		// Act
		f32, err32 := c.ReadF32()
		f64, err64 := c.ReadF64()

		// Assert
		require.NoError(t, err32)
		require.NoError(t, err64)
		assert.Equal(t, float32(1.5), f32)
		assert.Equal(t, -0.25, f64)
		assert.Equal(t, 12, c.Offset())
	})

	t.Run("it fails a short float read without consuming", func(t *testing.T) {
		t.Parallel()

		// Arrange
		c := bincode.NewCursor([]byte{1, 2, 3, 4, 5, 6, 7})

		// Act
		_, err := c.ReadF64()

		// Assert
		require.ErrorIs(t, err, bincode.ErrBufferExhausted)
		assert.Equal(t, 0, c.Offset())
	})

	t.Run("it reads u8 as a raw byte", func(t *testing.T) {
		t.Parallel()

		// Arrange
		c := bincode.NewCursor([]byte{bincode.MarkerU64})

		// Act
		v, err := c.ReadU8()

		// Assert
		require.NoError(t, err)
		assert.Equal(t, uint8(bincode.MarkerU64), v)
	})

	t.Run("it reads a pubkey and renders it as base58", func(t *testing.T) {
		t.Parallel()

		// Arrange
		want := solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111")
		c := bincode.NewCursor(bincodetest.New().Pubkey(want).Bytes())

		// Act
		got, err := c.ReadPubkey()

		// Assert
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, "Vote111111111111111111111111111111111111111", got.String())
		assert.Equal(t, bincode.PubkeyLength, c.Offset())
	})

	t.Run("it refuses a partial pubkey", func(t *testing.T) {
		t.Parallel()

		// Arrange
		c := bincode.NewCursor(make([]byte, bincode.PubkeyLength-1))

		// Act
		_, err := c.ReadPubkey()

		// Assert
		require.ErrorIs(t, err, bincode.ErrBufferExhausted)
		assert.Equal(t, 0, c.Offset())
	})
}

func TestCursorReadBool(t *testing.T) {
	t.Parallel()

	t.Run("it reads zero and one", func(t *testing.T) {
		t.Parallel()

		// Arrange
		c := bincode.NewCursor([]byte{0, 1})

		// Act
		f, errF := c.ReadBool()
		v, errT := c.ReadBool()

		// Assert
		require.NoError(t, errF)
		require.NoError(t, errT)
		assert.False(t, f)
		assert.True(t, v)
	})

	t.Run("it rejects other values without consuming them", func(t *testing.T) {
		t.Parallel()

		// Arrange
		sink := bincode.NewCollector()
		c := bincode.NewCursor([]byte{2}, bincode.WithSink(sink))

		// Act
		v, err := c.ReadBool()

		// Assert
		require.ErrorIs(t, err, bincode.ErrInvalidBool)
		assert.False(t, v)
		assert.Equal(t, 0, c.Offset())
		require.Equal(t, 1, sink.Count(bincode.KindInvalidBool))
		assert.Equal(t, 0, sink.Diagnostics()[0].Offset)
	})
}

func TestCursorStrings(t *testing.T) {
	t.Parallel()

	t.Run("it reads a string within bounds", func(t *testing.T) {
		t.Parallel()

		// Arrange
		c := bincode.NewCursor(bincodetest.New().String("sanctioned").Bytes())

		// Act
		s, err := c.ReadString(bincode.DefaultMaxString)

		// Assert
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, "sanctioned", *s)
		assert.Equal(t, 0, c.Remaining())
	})

	t.Run("it consumes only the prefix when the length exceeds the buffer", func(t *testing.T) {
		t.Parallel()

		// Arrange
		sink := bincode.NewCollector()
		blob := bincodetest.New().U32(40).Raw('a', 'b', 'c').Bytes()
		c := bincode.NewCursor(blob, bincode.WithSink(sink))

		// Act
		s, err := c.ReadString(bincode.DefaultMaxString)

		// Assert
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.Equal(t, 1, c.Offset())
		assert.Equal(t, 1, sink.Count(bincode.KindString))
	})

	t.Run("it truncates a string above the clamp but keeps alignment", func(t *testing.T) {
		t.Parallel()

		// Arrange
		sink := bincode.NewCollector()
		blob := bincodetest.New().String("abcdefgh").U8(42).Bytes()
		c := bincode.NewCursor(blob, bincode.WithSink(sink))

		// Act
		s, err := c.ReadString(4)
		next, nextErr := c.ReadU8()

		// Assert
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, "abcd", *s)
		require.NoError(t, nextErr)
		assert.Equal(t, uint8(42), next)
		assert.Equal(t, 1, sink.Count(bincode.KindString))
	})

	t.Run("it clamps before checking the remaining buffer", func(t *testing.T) {
		t.Parallel()

		// Arrange
		sink := bincode.NewCollector()
		prefix := bincodetest.New().U32(300)
		prefixLen := prefix.Len()
		blob := prefix.Raw(bytes.Repeat([]byte{'a'}, 280)...).Bytes()
		c := bincode.NewCursor(blob, bincode.WithSink(sink))

		// Act
		s, err := c.ReadString(256)

		// Assert
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, strings.Repeat("a", 256), *s)
		assert.Equal(t, prefixLen+256, c.Offset())
		assert.Equal(t, 1, sink.Count(bincode.KindString))
	})

	t.Run("it returns nil when even the clamped length exceeds the buffer", func(t *testing.T) {
		t.Parallel()

		// Arrange
		prefix := bincodetest.New().U32(300)
		prefixLen := prefix.Len()
		c := bincode.NewCursor(prefix.Raw(bytes.Repeat([]byte{'a'}, 200)...).Bytes())

		// Act
		s, err := c.ReadString(256)

		// Assert
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.Equal(t, prefixLen, c.Offset())
	})

	t.Run("it never splits a rune when truncating", func(t *testing.T) {
		t.Parallel()

		// Arrange
		c := bincode.NewCursor(bincodetest.New().String("héllo").Bytes())

		// Act
		s, err := c.ReadString(2)

		// Assert
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, "h", *s)
	})

	t.Run("it returns nil for invalid UTF-8", func(t *testing.T) {
		t.Parallel()

		// Arrange
		sink := bincode.NewCollector()
		blob := bincodetest.New().U32(2).Raw(0xff, 0xfe).Bytes()
		c := bincode.NewCursor(blob, bincode.WithSink(sink))

		// Act
		s, err := c.ReadString(bincode.DefaultMaxString)

		// Assert
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.Equal(t, 3, c.Offset())
		assert.Equal(t, 1, sink.Count(bincode.KindString))
	})

	t.Run("it fails when the prefix cannot be read", func(t *testing.T) {
		t.Parallel()

		// Arrange
		c := bincode.NewCursor([]byte{bincode.MarkerU32, 1})

		// Act
		_, err := c.ReadString(bincode.DefaultMaxString)

		// Assert
		require.ErrorIs(t, err, bincode.ErrBufferExhausted)
		assert.Equal(t, 0, c.Offset())
	})

	t.Run("it skips a string entirely", func(t *testing.T) {
		t.Parallel()

		// Arrange
		blob := bincodetest.New().String("https://example.com/icon.png").U8(7).Bytes()
		c := bincode.NewCursor(blob)

		// Act
		err := c.SkipString()
		next, _ := c.ReadU8()

		// Assert
		require.NoError(t, err)
		assert.Equal(t, uint8(7), next)
	})
}

func TestCursorDiagnosticContext(t *testing.T) {
	t.Parallel()

	t.Run("it stamps diagnostics with field and validator", func(t *testing.T) {
		t.Parallel()

		// Arrange
		sink := bincode.NewCollector()
		c := bincode.NewCursor([]byte{9}, bincode.WithSink(sink))
		c.SetField("details.name")
		c.SetValidator("Vote111111111111111111111111111111111111111")

		// Act
		_, _ = c.ReadBool()

		// Assert
		got := sink.Diagnostics()
		require.Len(t, got, 1)
		assert.Equal(t, "details.name", got[0].Field)
		assert.Equal(t, "Vote111111111111111111111111111111111111111", got[0].Validator)
		assert.Equal(t, bincode.SeverityError, got[0].Severity)
	})

	t.Run("it fans out to every sink", func(t *testing.T) {
		t.Parallel()

		// Arrange
		a, b := bincode.NewCollector(), bincode.NewCollector()
		c := bincode.NewCursor([]byte{5}, bincode.WithSink(bincode.Tee(a, b)))

		// Act
		_, _ = c.ReadBool()

		// Assert
		assert.Equal(t, 1, a.Len())
		assert.Equal(t, 1, b.Len())
	})
}

// Helpers

func readU16(c *bincode.Cursor) (uint64, error) {
	v, err := c.ReadU16()
	return uint64(v), err
}

func readU32(c *bincode.Cursor) (uint64, error) {
	v, err := c.ReadU32()
	return uint64(v), err
}

func readU64(c *bincode.Cursor) (uint64, error) {
	return c.ReadU64()
}
