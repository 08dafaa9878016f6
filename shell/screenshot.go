package shell

import (
	"image"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"
)

// Screenshot renders the current framebuffer through the live palette.
func (s *Shell) Screenshot() *image.RGBA {
	return s.RenderRGBA()
}

// ScreenshotScaled renders the framebuffer scaled to the given size
// with nearest-neighbor sampling, preserving the chunky-pixel look.
func (s *Shell) ScreenshotScaled(w, h int) *image.RGBA {
	src := s.RenderRGBA()
	if w == InternalW && h == InternalH {
		return src
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return out
}

// WritePNG dumps the current frame to disk, the hook the test harness
// and headless runs use.
func (s *Shell) WritePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, s.Screenshot())
}
