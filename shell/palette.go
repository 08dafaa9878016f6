// Package shell is the TempleShell compositor: it owns the canonical
// indexed-color framebuffer and palette, accepts client sessions over a
// unix socket, multiplexes input, and composites a terminal over the
// same surface. The windowing presenter and the OS clipboard are
// collaborators behind interfaces.
package shell

import "image/color"

// Palette is a 256-entry RGBA palette. Only the low 16 entries are
// semantically meaningful (the TempleOS palette); clients may mutate
// any slot.
type Palette [256]color.RGBA

// Named TempleOS palette indices.
const (
	ColorBlack    = 0
	ColorBlue     = 1
	ColorGreen    = 2
	ColorCyan     = 3
	ColorRed      = 4
	ColorPurple   = 5
	ColorBrown    = 6
	ColorLtGray   = 7
	ColorDkGray   = 8
	ColorLtBlue   = 9
	ColorLtGreen  = 10
	ColorLtCyan   = 11
	ColorLtRed    = 12
	ColorLtPurple = 13
	ColorYellow   = 14
	ColorWhite    = 15
)

// DefaultPalette is the TempleOS 16-color palette in the low entries;
// the rest start black and are only reachable through palette-set
// messages.
var DefaultPalette = Palette{
	{0x00, 0x00, 0x00, 0xFF}, // Black
	{0x00, 0x00, 0xAA, 0xFF}, // Blue
	{0x00, 0xAA, 0x00, 0xFF}, // Green
	{0x00, 0xAA, 0xAA, 0xFF}, // Cyan
	{0xAA, 0x00, 0x00, 0xFF}, // Red
	{0xAA, 0x00, 0xAA, 0xFF}, // Purple
	{0xAA, 0x55, 0x00, 0xFF}, // Brown
	{0xAA, 0xAA, 0xAA, 0xFF}, // LtGray
	{0x55, 0x55, 0x55, 0xFF}, // DkGray
	{0x55, 0x55, 0xFF, 0xFF}, // LtBlue
	{0x55, 0xFF, 0x55, 0xFF}, // LtGreen
	{0x55, 0xFF, 0xFF, 0xFF}, // LtCyan
	{0xFF, 0x55, 0x55, 0xFF}, // LtRed
	{0xFF, 0x55, 0xFF, 0xFF}, // LtPurple
	{0xFF, 0xFF, 0x55, 0xFF}, // Yellow
	{0xFF, 0xFF, 0xFF, 0xFF}, // White
}

func init() {
	// Unset entries stay opaque black so indexed garbage renders
	// predictably.
	for i := 16; i < 256; i++ {
		DefaultPalette[i] = color.RGBA{A: 0xFF}
	}
}

// Set replaces one palette slot with packed RGBA (r in the top byte).
func (p *Palette) Set(index byte, packed uint32) {
	p[index] = color.RGBA{
		R: byte(packed >> 24),
		G: byte(packed >> 16),
		B: byte(packed >> 8),
		A: byte(packed),
	}
}
