package rt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFillRectWritesExpectedPixels(t *testing.T) {
	s := NewSurface(640, 480)
	s.Clear(0)
	s.FillRect(10, 10, 20, 10, 14)

	w, _ := s.Size()
	pix := s.Pixels()
	for y := int32(0); y < 480; y++ {
		for x := int32(0); x < 640; x++ {
			want := byte(0)
			if x >= 10 && x < 30 && y >= 10 && y < 20 {
				want = 14
			}
			got := pix[uint32(y)*w+uint32(x)]
			if got != want {
				t.Fatalf("pixel (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestEmptyClipDrawsNothing(t *testing.T) {
	s := NewSurface(64, 64)
	s.SetClipRect(10, 10, 0, 5)
	s.FillRect(0, 0, 64, 64, 7)
	s.SetPixel(12, 12, 7)
	s.DrawLine(0, 0, 63, 63, 7)
	for _, px := range s.Pixels() {
		require.Zero(t, px)
	}
}

func TestClipRectBoundsDrawing(t *testing.T) {
	s := NewSurface(32, 32)
	s.SetClipRect(8, 8, 8, 8)
	s.FillRect(0, 0, 32, 32, 5)
	pix := s.Pixels()
	for y := int32(0); y < 32; y++ {
		for x := int32(0); x < 32; x++ {
			inside := x >= 8 && x < 16 && y >= 8 && y < 16
			got := pix[y*32+x]
			if inside {
				require.Equal(t, byte(5), got, "inside (%d,%d)", x, y)
			} else {
				require.Zero(t, got, "outside (%d,%d)", x, y)
			}
		}
	}
}

func TestThinThickLineEquivalence(t *testing.T) {
	a := NewSurface(64, 64)
	b := NewSurface(64, 64)
	a.DrawLine(3, 5, 50, 41, 9)
	b.DrawLineThick(3, 5, 50, 41, 9, 1)
	require.Equal(t, a.Pixels(), b.Pixels())

	// thick <= 1 clamps to 1
	c := NewSurface(64, 64)
	c.DrawLineThick(3, 5, 50, 41, 9, 0)
	require.Equal(t, a.Pixels(), c.Pixels())
}

func TestThickLineExpandsSquares(t *testing.T) {
	s := NewSurface(16, 16)
	s.DrawLineThick(8, 8, 8, 8, 3, 3)
	// A degenerate line plots one 3x3 square centered at (8,8) minus
	// the half offset.
	count := 0
	for _, px := range s.Pixels() {
		if px == 3 {
			count++
		}
	}
	require.Equal(t, 9, count)
}

func TestDrawRectOutlineDegeneratesToFill(t *testing.T) {
	s := NewSurface(16, 16)
	s.DrawRectOutlineThick(2, 2, 4, 4, 6, 2)
	for y := int32(2); y < 6; y++ {
		for x := int32(2); x < 6; x++ {
			require.Equal(t, byte(6), s.Pixels()[y*16+x])
		}
	}
}

func TestDrawCircleRadiusZeroDrawsNothing(t *testing.T) {
	s := NewSurface(16, 16)
	s.DrawCircle(8, 8, 0, 4)
	for _, px := range s.Pixels() {
		require.Zero(t, px)
	}
}

func TestBlit8bppTransparent(t *testing.T) {
	s := NewSurface(8, 8)
	src := []byte{
		1, 0,
		0, 2,
	}
	s.Clear(9)
	s.Blit8bppTransparent(0, 0, 2, 2, src, 0)
	require.Equal(t, byte(1), s.Pixels()[0])
	require.Equal(t, byte(9), s.Pixels()[1])
	require.Equal(t, byte(9), s.Pixels()[8])
	require.Equal(t, byte(2), s.Pixels()[9])
}

func TestBlit8bppShortSourceIgnored(t *testing.T) {
	s := NewSurface(8, 8)
	s.Blit8bpp(0, 0, 4, 4, []byte{1, 2, 3})
	for _, px := range s.Pixels() {
		require.Zero(t, px)
	}
}

func TestDrawTextAdvancesAndWraps(t *testing.T) {
	s := NewSurface(64, 16)
	s.DrawText(0, 0, 15, 0, "A\nB")
	// Newline resets the column, so B overprints A's cell.
	nonZero := false
	for y := int32(0); y < 8; y++ {
		for x := int32(8); x < 16; x++ {
			if s.Pixels()[y*64+x] != 0 {
				nonZero = true
			}
		}
	}
	require.False(t, nonZero, "second cell should be untouched")
}

func TestSetFontGlyphChangesRendering(t *testing.T) {
	s := NewSurface(8, 8)
	s.SetFontGlyph('X', 0xFFFFFFFFFFFFFFFF)
	s.DrawChar8x8(0, 0, 2, 0, 'X')
	for _, px := range s.Pixels() {
		require.Equal(t, byte(2), px)
	}
}
