package shell

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Letterbox maps the internal 640×480 grid into a host window: integer
// uniform scaling when the window is at least internal-sized, otherwise
// a nearest-neighbor fit.
type Letterbox struct {
	DestX, DestY   uint32
	DestW, DestH   uint32
	scaleX, scaleY float64
}

// NewLetterbox computes the mapping for a host window of the given
// pixel size.
func NewLetterbox(outputW, outputH uint32) Letterbox {
	scaleX := outputW / InternalW
	scaleY := outputH / InternalH
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}

	if scale >= 1 {
		destW := uint32(InternalW * scale)
		destH := uint32(InternalH * scale)
		return Letterbox{
			DestX:  (outputW - destW) / 2,
			DestY:  (outputH - destH) / 2,
			DestW:  destW,
			DestH:  destH,
			scaleX: float64(scale),
			scaleY: float64(scale),
		}
	}

	return Letterbox{
		DestW:  outputW,
		DestH:  outputH,
		scaleX: float64(outputW) / InternalW,
		scaleY: float64(outputH) / InternalH,
	}
}

// MapPointToInternal inverse-maps a host window point into internal
// coordinates. Points outside the letterbox yield no coordinate.
func (l Letterbox) MapPointToInternal(x, y float64) (uint32, uint32, bool) {
	ix := int(x)
	iy := int(y)

	x0, y0 := int(l.DestX), int(l.DestY)
	x1, y1 := x0+int(l.DestW), y0+int(l.DestH)
	if ix < x0 || ix >= x1 || iy < y0 || iy >= y1 {
		return 0, 0, false
	}

	internalX := int(float64(ix-x0) / l.scaleX)
	internalY := int(float64(iy-y0) / l.scaleY)
	if internalX < 0 {
		internalX = 0
	}
	if internalX >= InternalW {
		internalX = InternalW - 1
	}
	if internalY < 0 {
		internalY = 0
	}
	if internalY >= InternalH {
		internalY = InternalH - 1
	}
	return uint32(internalX), uint32(internalY), true
}

// Compose scales an internal RGBA frame into a host-sized image using
// nearest-neighbor sampling, black bars filling the rest.
func (l Letterbox) Compose(internal *image.RGBA, outputW, outputH uint32) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, int(outputW), int(outputH)))
	dst := image.Rect(int(l.DestX), int(l.DestY), int(l.DestX+l.DestW), int(l.DestY+l.DestH))
	xdraw.NearestNeighbor.Scale(out, dst, internal, internal.Bounds(), xdraw.Src, nil)
	return out
}
