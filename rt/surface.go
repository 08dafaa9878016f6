package rt

import "github.com/templelinux/temple/cp437"

// ClipRect is the active clip rectangle in pixel coordinates,
// half-open on the right and bottom.
type ClipRect struct {
	X0, Y0, X1, Y1 int32
}

func fullClip(width, height uint32) ClipRect {
	return ClipRect{X1: int32(width), Y1: int32(height)}
}

// Surface is an indexed-color pixel buffer with a clip rectangle and an
// 8×8 font. It backs both the client-side shared framebuffer and the
// shell's own canonical framebuffer; all drawing primitives live here.
type Surface struct {
	width  uint32
	height uint32
	pix    []byte
	clip   ClipRect
	font   [256]uint64
}

// NewSurface allocates an offline surface, useful for the shell
// framebuffer and for tests.
func NewSurface(width, height uint32) *Surface {
	return NewSurfaceOver(make([]byte, width*height), width, height)
}

// NewSurfaceOver wraps an existing pixel buffer (typically shared
// memory) without copying. len(pix) must be width*height.
func NewSurfaceOver(pix []byte, width, height uint32) *Surface {
	s := &Surface{
		width:  width,
		height: height,
		pix:    pix,
		clip:   fullClip(width, height),
		font:   cp437.SysFontStd,
	}
	return s
}

// Size returns the surface dimensions in pixels.
func (s *Surface) Size() (uint32, uint32) {
	return s.width, s.height
}

// Pixels exposes the raw index buffer. Pixel (x, y) is byte y*W+x.
func (s *Surface) Pixels() []byte {
	return s.pix
}

// ResetClipRect restores the full-screen clip.
func (s *Surface) ResetClipRect() {
	s.clip = fullClip(s.width, s.height)
}

// SetClipRect installs a clip rectangle. Non-positive sizes yield an
// empty clip; the rectangle is intersected with the surface bounds.
func (s *Surface) SetClipRect(x, y, w, h int32) {
	if w <= 0 || h <= 0 {
		s.clip = ClipRect{}
		return
	}
	x0 := clampI64(int64(x), 0, int64(s.width))
	y0 := clampI64(int64(y), 0, int64(s.height))
	x1 := clampI64(int64(x)+int64(w), 0, int64(s.width))
	y1 := clampI64(int64(y)+int64(h), 0, int64(s.height))
	s.clip = ClipRect{X0: int32(x0), Y0: int32(y0), X1: int32(x1), Y1: int32(y1)}
}

// Clear fills the whole surface, ignoring the clip rectangle.
func (s *Surface) Clear(color byte) {
	for i := range s.pix {
		s.pix[i] = color
	}
}

// SetPixel plots one pixel, respecting the clip rectangle.
func (s *Surface) SetPixel(x, y int32, color byte) {
	if x < s.clip.X0 || x >= s.clip.X1 || y < s.clip.Y0 || y >= s.clip.Y1 {
		return
	}
	s.pix[uint32(y)*s.width+uint32(x)] = color
}

// FillRect fills a rectangle clipped to the surface and clip rect.
func (s *Surface) FillRect(x, y, w, h int32, color byte) {
	if w <= 0 || h <= 0 {
		return
	}
	x0 := clampI64(maxI64(int64(x), int64(s.clip.X0)), 0, int64(s.width))
	y0 := clampI64(maxI64(int64(y), int64(s.clip.Y0)), 0, int64(s.height))
	x1 := clampI64(minI64(int64(x)+int64(w), int64(s.clip.X1)), 0, int64(s.width))
	y1 := clampI64(minI64(int64(y)+int64(h), int64(s.clip.Y1)), 0, int64(s.height))
	if x0 >= x1 || y0 >= y1 {
		return
	}
	for yy := y0; yy < y1; yy++ {
		row := uint32(yy) * s.width
		fillBytes(s.pix[row+uint32(x0):row+uint32(x1)], color)
	}
}

// DrawLine draws a one-pixel Bresenham line.
func (s *Surface) DrawLine(x1, y1, x2, y2 int32, color byte) {
	s.DrawLineThick(x1, y1, x2, y2, color, 1)
}

// DrawLineThick draws a Bresenham line; thick > 1 expands each plotted
// pixel into a thick×thick filled square.
func (s *Surface) DrawLineThick(x1, y1, x2, y2 int32, color byte, thick int32) {
	if thick < 1 {
		thick = 1
	}
	x, y := x1, y1
	dx := absI32(x2 - x1)
	sx := int32(-1)
	if x1 < x2 {
		sx = 1
	}
	dy := -absI32(y2 - y1)
	sy := int32(-1)
	if y1 < y2 {
		sy = 1
	}
	err := dx + dy

	for {
		if thick == 1 {
			s.SetPixel(x, y, color)
		} else {
			half := thick / 2
			s.FillRect(x-half, y-half, thick, thick, color)
		}
		if x == x2 && y == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

// DrawRectOutline draws a one-pixel rectangle outline.
func (s *Surface) DrawRectOutline(x, y, w, h int32, color byte) {
	s.DrawRectOutlineThick(x, y, w, h, color, 1)
}

// DrawRectOutlineThick draws a rectangle outline with the given border
// thickness. A border too thick for the rectangle degenerates to a
// filled rectangle.
func (s *Surface) DrawRectOutlineThick(x, y, w, h int32, color byte, thick int32) {
	if w <= 0 || h <= 0 {
		return
	}
	if thick < 1 {
		thick = 1
	}
	if thick*2 >= w || thick*2 >= h {
		s.FillRect(x, y, w, h, color)
		return
	}
	s.FillRect(x, y, w, thick, color)
	s.FillRect(x, y+h-thick, w, thick, color)
	s.FillRect(x, y+thick, thick, h-2*thick, color)
	s.FillRect(x+w-thick, y+thick, thick, h-2*thick, color)
}

// DrawCircle draws a one-pixel midpoint circle.
func (s *Surface) DrawCircle(cx, cy, r int32, color byte) {
	s.DrawCircleThick(cx, cy, r, color, 1)
}

// DrawCircleThick draws a midpoint circle; thick > 1 expands each
// plotted pixel into a thick×thick filled square.
func (s *Surface) DrawCircleThick(cx, cy, r int32, color byte, thick int32) {
	if r <= 0 {
		return
	}
	if thick < 1 {
		thick = 1
	}
	half := thick / 2

	x, y, err := r, int32(0), int32(0)
	for x >= y {
		pts := [8][2]int32{
			{cx + x, cy + y}, {cx + y, cy + x}, {cx - y, cy + x}, {cx - x, cy + y},
			{cx - x, cy - y}, {cx - y, cy - x}, {cx + y, cy - x}, {cx + x, cy - y},
		}
		for _, p := range pts {
			if thick == 1 {
				s.SetPixel(p[0], p[1], color)
			} else {
				s.FillRect(p[0]-half, p[1]-half, thick, thick, color)
			}
		}
		y++
		if err <= 0 {
			err += 2*y + 1
		} else {
			x--
			err -= 2*x + 1
		}
	}
}

// Blit8bpp copies an indexed-color source rectangle onto the surface.
func (s *Surface) Blit8bpp(dstX, dstY, srcW, srcH int32, src []byte) {
	s.blit8bpp(dstX, dstY, srcW, srcH, src, -1)
}

// Blit8bppTransparent copies like Blit8bpp but skips source pixels
// equal to transparent.
func (s *Surface) Blit8bppTransparent(dstX, dstY, srcW, srcH int32, src []byte, transparent byte) {
	s.blit8bpp(dstX, dstY, srcW, srcH, src, int(transparent))
}

func (s *Surface) blit8bpp(dstX, dstY, srcW, srcH int32, src []byte, transparent int) {
	if srcW <= 0 || srcH <= 0 {
		return
	}
	if int64(len(src)) < int64(srcW)*int64(srcH) {
		return
	}

	dstX0 := maxI32(maxI32(dstX, 0), s.clip.X0)
	dstY0 := maxI32(maxI32(dstY, 0), s.clip.Y0)
	dstX1 := int32(clampI64(int64(dstX)+int64(srcW), 0, minI64(int64(s.width), int64(s.clip.X1))))
	dstY1 := int32(clampI64(int64(dstY)+int64(srcH), 0, minI64(int64(s.height), int64(s.clip.Y1))))
	if dstX0 >= dstX1 || dstY0 >= dstY1 {
		return
	}

	copyW := int(dstX1 - dstX0)
	srcX0 := int(dstX0 - dstX)

	for dy := dstY0; dy < dstY1; dy++ {
		sy := int(dy - dstY)
		srcStart := sy*int(srcW) + srcX0
		dstStart := int(uint32(dy)*s.width) + int(dstX0)
		dstRow := s.pix[dstStart : dstStart+copyW]
		srcRow := src[srcStart : srcStart+copyW]
		if transparent < 0 {
			copy(dstRow, srcRow)
			continue
		}
		for i, px := range srcRow {
			if int(px) != transparent {
				dstRow[i] = px
			}
		}
	}
}

// DrawText draws a string with the 8×8 font, advancing 8 pixels per
// glyph. A newline returns to the starting column without advancing y.
func (s *Surface) DrawText(x, y int32, fg, bg byte, text string) {
	cx := x
	for _, ch := range text {
		if ch == '\n' {
			cx = x
			continue
		}
		s.DrawChar8x8(cx, y, fg, bg, ch)
		cx += 8
	}
}

// DrawChar8x8 draws one glyph, including its background pixels.
func (s *Surface) DrawChar8x8(x, y int32, fg, bg byte, ch rune) {
	code := cp437.Encode(ch)
	bits := s.font[code]
	for row := int32(0); row < 8; row++ {
		rowBits := byte(bits >> (8 * uint(row)))
		for col := int32(0); col < 8; col++ {
			c := bg
			if rowBits&(1<<uint(col)) != 0 {
				c = fg
			}
			s.SetPixel(x+col, y+row, c)
		}
	}
}

// SetFontGlyph replaces one glyph bitmap (text.font[] writes).
func (s *Surface) SetFontGlyph(glyph byte, bits uint64) {
	s.font[glyph] = bits
}

// FontGlyph returns the current bitmap for one glyph.
func (s *Surface) FontGlyph(glyph byte) uint64 {
	return s.font[glyph]
}

func fillBytes(dst []byte, v byte) {
	for i := range dst {
		dst[i] = v
	}
}

func absI32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func clampI64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
