package shell

import "github.com/templelinux/temple/rt"

// Software mouse cursor: an 8×8 arrow with a contrasting border, drawn
// into the framebuffer after compositing.
const (
	cursorW = 8
	cursorH = 8

	cursorBorderColor = ColorBlack
	cursorFillColor   = ColorWhite
)

var cursorBorder = [cursorH]byte{
	0b00000001,
	0b00000011,
	0b00000101,
	0b00001001,
	0b00010001,
	0b00100001,
	0b01000001,
	0b11111111,
}

var cursorFill = [cursorH]byte{
	0b00000000,
	0b00000000,
	0b00000010,
	0b00000110,
	0b00001110,
	0b00011110,
	0b00111110,
	0b00000000,
}

// drawCursor paints the cursor sprite with its hotspot at (x, y).
func drawCursor(surf *rt.Surface, x, y int32) {
	for row := int32(0); row < cursorH; row++ {
		border := cursorBorder[row]
		fill := cursorFill[row]
		for col := int32(0); col < cursorW; col++ {
			bit := byte(1) << uint(col)
			switch {
			case border&bit != 0:
				surf.SetPixel(x+col, y+row, cursorBorderColor)
			case fill&bit != 0:
				surf.SetPixel(x+col, y+row, cursorFillColor)
			}
		}
	}
}
