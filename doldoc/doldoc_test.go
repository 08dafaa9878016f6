package doldoc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/templelinux/temple/rt"
)

func binRecord(num uint32, payload []byte) []byte {
	out := make([]byte, 16+len(payload))
	binary.LittleEndian.PutUint32(out[0:], num)
	binary.LittleEndian.PutUint32(out[8:], uint32(len(payload)))
	copy(out[16:], payload)
	return out
}

func TestParseBinTail(t *testing.T) {
	tail := append(binRecord(1, []byte{0xAA, 0xBB}), binRecord(3, []byte{0xCC})...)
	bins := ParseBinTail(tail)
	require.Len(t, bins, 2)
	require.Equal(t, []byte{0xAA, 0xBB}, bins[1])
	require.Equal(t, []byte{0xCC}, bins[3])
}

func TestParseBinTailToleratesSmallTruncation(t *testing.T) {
	rec := binRecord(2, []byte{1, 2, 3, 4})
	// Claim 4 extra bytes that are not there.
	binary.LittleEndian.PutUint32(rec[8:], 8)
	bins := ParseBinTail(rec)
	require.Equal(t, []byte{1, 2, 3, 4}, bins[2])
}

func TestParseBinTailRejectsLargeOvershoot(t *testing.T) {
	rec := binRecord(2, []byte{1, 2, 3, 4})
	binary.LittleEndian.PutUint32(rec[8:], 4096)
	bins := ParseBinTail(rec)
	require.Empty(t, bins)
}

func TestParseBinTailIgnoresShortHeader(t *testing.T) {
	require.Empty(t, ParseBinTail([]byte{1, 2, 3}))
}

func i32(v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func TestRenderSpriteRectAndColor(t *testing.T) {
	s := rt.NewSurface(16, 16)

	var elems []byte
	elems = append(elems, sptColor)
	elems = append(elems, 0x04, 0x00) // RED
	elems = append(elems, sptRect)
	elems = append(elems, i32(1)...)
	elems = append(elems, i32(1)...)
	elems = append(elems, i32(3)...)
	elems = append(elems, i32(2)...)
	elems = append(elems, sptEnd)

	RenderSprite(s, 2, 2, elems, 15, 1)

	for y := int32(3); y <= 4; y++ {
		for x := int32(3); x <= 5; x++ {
			require.Equal(t, byte(4), s.Pixels()[y*16+x], "(%d,%d)", x, y)
		}
	}
	require.Zero(t, s.Pixels()[2*16+2])
}

func TestRenderSpritePtHonorsThick(t *testing.T) {
	s := rt.NewSurface(16, 16)

	var elems []byte
	elems = append(elems, sptThick)
	elems = append(elems, i32(3)...)
	elems = append(elems, sptPt)
	elems = append(elems, i32(8)...)
	elems = append(elems, i32(8)...)

	RenderSprite(s, 0, 0, elems, 5, 1)

	count := 0
	for _, px := range s.Pixels() {
		if px == 5 {
			count++
		}
	}
	require.Equal(t, 9, count)
}

func TestRenderSpriteInitialColorMasked(t *testing.T) {
	s := rt.NewSurface(8, 8)
	elems := append([]byte{sptPt}, append(i32(1), i32(1)...)...)
	RenderSprite(s, 0, 0, elems, 0x1F, 1) // masks to WHITE
	require.Equal(t, byte(15), s.Pixels()[1*8+1])
}

func TestRenderSpriteStopsOnUnknownElement(t *testing.T) {
	s := rt.NewSurface(8, 8)
	var elems []byte
	elems = append(elems, sptBitmap) // unknown layout: walk must stop
	elems = append(elems, sptPt)
	elems = append(elems, i32(1)...)
	elems = append(elems, i32(1)...)
	RenderSprite(s, 0, 0, elems, 15, 1)
	for _, px := range s.Pixels() {
		require.Zero(t, px)
	}
}

func TestRenderSpriteTruncatedFieldStops(t *testing.T) {
	s := rt.NewSurface(8, 8)
	elems := []byte{sptLine, 1, 0} // truncated i32
	RenderSprite(s, 0, 0, elems, 15, 1)
	for _, px := range s.Pixels() {
		require.Zero(t, px)
	}
}
