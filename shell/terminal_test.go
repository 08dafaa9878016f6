package shell

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/templelinux/temple/rt"
)

func TestTerminalPutCharAndLineContent(t *testing.T) {
	term := NewTerminal(ColorWhite, ColorBlack, OutputRows)
	term.ClearOutput()
	term.WriteString("Hello")
	require.Equal(t, "Hello", term.LineContent(0))

	col, row := term.Cursor()
	require.Equal(t, 5, col)
	require.Equal(t, 0, row)
}

func TestTerminalTabAdvancesToStop(t *testing.T) {
	term := NewTerminal(ColorWhite, ColorBlack, OutputRows)
	term.ClearOutput()
	term.WriteString("a\tb")
	col, _ := term.Cursor()
	require.Equal(t, 5, col)
	require.Equal(t, byte('b'), term.Cell(4, 0).Ch)
}

func TestTerminalScrollIntoScrollback(t *testing.T) {
	term := NewTerminal(ColorWhite, ColorBlack, 4)
	term.ClearOutput()
	for i := 0; i < 6; i++ {
		term.WriteString("line\n")
	}
	require.Equal(t, 3, term.ScrollbackLen())

	oldest := term.scrollbackLine(0)
	require.NotNil(t, oldest)
	require.Equal(t, byte('l'), oldest[0].Ch)
}

func TestTerminalScrollbackBounded(t *testing.T) {
	term := NewTerminal(ColorWhite, ColorBlack, 2)
	term.SetMaxScrollback(10)
	for i := 0; i < 100; i++ {
		term.WriteString("x\n")
	}
	require.Equal(t, 10, term.ScrollbackLen())
}

func TestTerminalViewScrolling(t *testing.T) {
	term := NewTerminal(ColorWhite, ColorBlack, 4)
	for i := 0; i < 20; i++ {
		term.WriteString("x\n")
	}
	term.ScrollViewUp(5)
	require.Equal(t, 5, term.ViewOffset())
	term.ScrollViewDown(2)
	require.Equal(t, 3, term.ViewOffset())
	term.ScrollViewToTop()
	require.Equal(t, term.ScrollbackLen(), term.ViewOffset())
	term.ScrollViewToBottom()
	require.Zero(t, term.ViewOffset())
}

func TestTerminalInvertCell(t *testing.T) {
	term := NewTerminal(ColorWhite, ColorBlack, OutputRows)
	term.WriteString("S")
	term.InvertCell(0, 0)
	cell := term.Cell(0, 0)
	require.Equal(t, byte(ColorBlack), cell.Fg)
	require.Equal(t, byte(ColorWhite), cell.Bg)
}

func TestTerminalWideRunesTakeTwoCells(t *testing.T) {
	term := NewTerminal(ColorWhite, ColorBlack, OutputRows)
	term.WriteString("漢x")
	col, _ := term.Cursor()
	require.Equal(t, 3, col)
	require.Equal(t, byte('x'), term.Cell(2, 0).Ch)
}

func TestRenderOpaquePaintsBackground(t *testing.T) {
	term := NewTerminal(ColorWhite, ColorBlue, OutputRows)
	term.ClearOutput()
	surf := rt.NewSurface(InternalW, InternalH)
	term.Render(surf, RenderOpaque)
	// A blank cell paints all 64 pixels with the background.
	require.Equal(t, byte(ColorBlue), surf.Pixels()[0])
}

func TestRenderOverWallpaperDithersBlackBackground(t *testing.T) {
	term := NewTerminal(ColorWhite, ColorBlack, OutputRows)
	term.ClearOutput()
	surf := rt.NewSurface(InternalW, InternalH)
	surf.Clear(9) // wallpaper stand-in
	term.Render(surf, RenderOverWallpaper)

	// Half the blank-cell pixels stay wallpaper, half go black.
	pix := surf.Pixels()
	require.Equal(t, byte(0), pix[0])              // (0,0) even
	require.Equal(t, byte(9), pix[1])              // (1,0) odd
	require.Equal(t, byte(9), pix[InternalW])      // (0,1) odd
	require.Equal(t, byte(0), pix[InternalW+1])    // (1,1) even
}

func TestLetterboxIntegerScale(t *testing.T) {
	lb := NewLetterbox(1280, 960)
	require.Equal(t, uint32(1280), lb.DestW)
	require.Equal(t, uint32(960), lb.DestH)
	require.Equal(t, uint32(0), lb.DestX)

	x, y, ok := lb.MapPointToInternal(2, 2)
	require.True(t, ok)
	require.Equal(t, uint32(1), x)
	require.Equal(t, uint32(1), y)
}

func TestLetterboxCentersAndRejectsOutside(t *testing.T) {
	lb := NewLetterbox(1920, 1080)
	// Scale 2 fits: 1280x960 centered.
	require.Equal(t, uint32(1280), lb.DestW)
	require.Equal(t, uint32(320), lb.DestX)
	require.Equal(t, uint32(60), lb.DestY)

	_, _, ok := lb.MapPointToInternal(10, 10)
	require.False(t, ok)

	x, y, ok := lb.MapPointToInternal(320, 60)
	require.True(t, ok)
	require.Zero(t, x)
	require.Zero(t, y)
}

func TestLetterboxDownscaleFit(t *testing.T) {
	lb := NewLetterbox(320, 240)
	require.Equal(t, uint32(320), lb.DestW)
	x, _, ok := lb.MapPointToInternal(319, 239)
	require.True(t, ok)
	require.Equal(t, uint32(InternalW-2), x)
}

func TestPaletteSet(t *testing.T) {
	p := DefaultPalette
	p.Set(14, 0x11223344)
	require.Equal(t, byte(0x11), p[14].R)
	require.Equal(t, byte(0x22), p[14].G)
	require.Equal(t, byte(0x33), p[14].B)
	require.Equal(t, byte(0x44), p[14].A)
}
