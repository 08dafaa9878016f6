package cp437

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeASCII(t *testing.T) {
	for r := rune(0); r < 0x80; r++ {
		require.Equal(t, byte(r), Encode(r))
		require.Equal(t, r, Decode(byte(r)))
	}
}

func TestEncodeDecodeHighHalf(t *testing.T) {
	for b := 0x80; b < 0x100; b++ {
		r := Decode(byte(b))
		require.Equal(t, byte(b), Encode(r), "byte 0x%02X rune %q", b, r)
	}
}

func TestEncodeUnknownRune(t *testing.T) {
	require.Equal(t, byte('?'), Encode('漢'))
}

func TestPiGlyphPresent(t *testing.T) {
	require.Equal(t, byte(0xE3), Encode('π'))
	require.NotZero(t, SysFontStd[0xE3])
}

func TestGlyphRowBitsLeftmostIsBitZero(t *testing.T) {
	// '!' has its stem in the center columns: row 0 is 0x18 MSB-left,
	// which is symmetric under bit reversal.
	require.Equal(t, byte(0x18), GlyphRowBits('!', 0))
	// 'L' row 0 is 0x60 MSB-left: pixels at columns 1 and 2, so packed
	// LSB-left bits 1 and 2.
	require.Equal(t, byte(0x06), GlyphRowBits('L', 0))
}

func TestDecodeBytes(t *testing.T) {
	require.Equal(t, "A░π", DecodeBytes([]byte{'A', 0xB0, 0xE3}))
}
