package doldoc

import (
	"encoding/binary"
	"math"

	"github.com/templelinux/temple/rt"
)

// Sprite element types, matching the DolDoc SPT_* numbering.
const (
	sptEnd            = 0
	sptColor          = 1
	sptDitherColor    = 2
	sptThick          = 3
	sptPlanarSymmetry = 4
	sptTransformOn    = 5
	sptTransformOff   = 6
	sptShift          = 7
	sptPt             = 8
	sptPolyPt         = 9
	sptLine           = 10
	sptPolyLine       = 11
	sptRect           = 12
	sptRotatedRect    = 13
	sptCircle         = 14
	sptEllipse        = 15
	sptPolygon        = 16
	sptFloodFill      = 17
	sptFloodFillNot   = 18
	sptBitmap         = 19
	sptMesh           = 20
	sptShiftableMesh  = 21
	sptText           = 22
	sptTextBox        = 23
	sptTextDiamond    = 24
	sptMark           = 25
)

// spriteWalker reads little-endian fields out of an element stream.
type spriteWalker struct {
	data []byte
	p    int
	bad  bool
}

func (w *spriteWalker) u8() byte {
	if w.p+1 > len(w.data) {
		w.bad = true
		return 0
	}
	v := w.data[w.p]
	w.p++
	return v
}

func (w *spriteWalker) u16() uint16 {
	if w.p+2 > len(w.data) {
		w.bad = true
		return 0
	}
	v := binary.LittleEndian.Uint16(w.data[w.p:])
	w.p += 2
	return v
}

func (w *spriteWalker) i32() int32 {
	if w.p+4 > len(w.data) {
		w.bad = true
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(w.data[w.p:]))
	w.p += 4
	return v
}

func (w *spriteWalker) cstr() []byte {
	start := w.p
	for w.p < len(w.data) && w.data[w.p] != 0 {
		w.p++
	}
	s := w.data[start:w.p]
	if w.p < len(w.data) {
		w.p++ // NUL
	}
	return s
}

// RenderSprite interprets a DolDoc sprite element stream and draws it
// onto the surface at origin (x, y). The walk starts with the caller's
// DC color masked to 4 bits and a thickness of at least 1, and runs
// until an END element, a malformed field, or an element kind whose
// layout we cannot skip safely.
func RenderSprite(s *rt.Surface, x, y int32, elems []byte, color byte, thick int32) {
	color &= 0x0F
	if thick < 1 {
		thick = 1
	}
	ox, oy := x, y

	w := &spriteWalker{data: elems}
	for !w.bad && w.p < len(w.data) {
		switch int(w.u8()) {
		case sptEnd:
			return
		case sptColor, sptDitherColor:
			color = byte(w.u16()) & 0x0F
		case sptThick:
			t := w.i32()
			if t < 1 {
				t = 1
			}
			thick = t
		case sptPlanarSymmetry:
			// Mirror line; recorded but not applied.
			w.i32()
			w.i32()
			w.i32()
			w.i32()
		case sptTransformOn, sptTransformOff:
			// No payload.
		case sptShift:
			ox += w.i32()
			oy += w.i32()
		case sptPt:
			px, py := w.i32(), w.i32()
			if !w.bad {
				plotThick(s, ox+px, oy+py, color, thick)
			}
		case sptLine:
			x1, y1 := w.i32(), w.i32()
			x2, y2 := w.i32(), w.i32()
			if !w.bad {
				s.DrawLineThick(ox+x1, oy+y1, ox+x2, oy+y2, color, thick)
			}
		case sptPolyLine:
			cnt := w.i32()
			if cnt < 0 || cnt > 1<<16 {
				return
			}
			var px, py int32
			for i := int32(0); i < cnt && !w.bad; i++ {
				nx, ny := w.i32(), w.i32()
				if i > 0 && !w.bad {
					s.DrawLineThick(ox+px, oy+py, ox+nx, oy+ny, color, thick)
				}
				px, py = nx, ny
			}
		case sptRect:
			x1, y1 := w.i32(), w.i32()
			x2, y2 := w.i32(), w.i32()
			if x2 < x1 {
				x1, x2 = x2, x1
			}
			if y2 < y1 {
				y1, y2 = y2, y1
			}
			if !w.bad {
				s.FillRect(ox+x1, oy+y1, x2-x1+1, y2-y1+1, color)
			}
		case sptCircle:
			cx, cy := w.i32(), w.i32()
			r := w.i32()
			if !w.bad {
				s.DrawCircleThick(ox+cx, oy+cy, r, color, thick)
			}
		case sptEllipse:
			cx, cy := w.i32(), w.i32()
			rx, ry := w.i32(), w.i32()
			drawEllipse(s, ox+cx, oy+cy, rx, ry, color, thick)
		case sptFloodFill, sptFloodFillNot:
			// Accepted, not implemented.
			w.i32()
			w.i32()
		case sptMark:
			w.i32()
			w.i32()
		case sptText:
			tx, ty := w.i32(), w.i32()
			drawSpriteText(s, ox+tx, oy+ty, color, w.cstr())
		default:
			// Rotated rects, polygons, bitmaps, meshes, and text boxes
			// carry layouts we cannot skip blindly; stop the walk.
			return
		}
	}
}

// plotThick plots one point honoring the current thickness.
func plotThick(s *rt.Surface, x, y int32, color byte, thick int32) {
	if thick == 1 {
		s.SetPixel(x, y, color)
		return
	}
	half := thick / 2
	s.FillRect(x-half, y-half, thick, thick, color)
}

// drawSpriteText draws glyph foreground pixels only, leaving the
// background behind the sprite intact.
func drawSpriteText(s *rt.Surface, x, y int32, color byte, text []byte) {
	cx := x
	for _, b := range text {
		if b == '\n' {
			cx = x
			y += 8
			continue
		}
		bits := s.FontGlyph(b)
		for row := int32(0); row < 8; row++ {
			rowBits := byte(bits >> (8 * uint(row)))
			for col := int32(0); col < 8; col++ {
				if rowBits&(1<<uint(col)) != 0 {
					s.SetPixel(cx+col, y+row, color)
				}
			}
		}
		cx += 8
	}
}

func drawEllipse(s *rt.Surface, cx, cy, rx, ry int32, color byte, thick int32) {
	if rx <= 0 || ry <= 0 {
		return
	}
	steps := (rx + ry) / 2
	if steps < 12 {
		steps = 12
	}
	if steps > 256 {
		steps = 256
	}
	steps *= 4

	var px, py int32
	for i := int32(0); i <= steps; i++ {
		a := float64(i) / float64(steps) * 2 * math.Pi
		nx := cx + int32(math.Round(math.Cos(a)*float64(rx)))
		ny := cy + int32(math.Round(math.Sin(a)*float64(ry)))
		if i > 0 {
			s.DrawLineThick(px, py, nx, ny, color, thick)
		}
		px, py = nx, ny
	}
}
