package sampler

import (
	"errors"
	"fmt"
	"image"

	"github.com/crimson-sun/silverwatch/internal/model"
)

var errEmptyRegion = errors.New("sampler: empty region")

// Sampler extracts one color reading from a frame.
type Sampler interface {
	// Sample returns the mean color and the region it was taken from.
	Sample(f model.Frame) (model.Color, model.Rect, error)
}

// Center samples the centered quarter-size region of every frame.
type Center struct{}

// Sample implements Sampler.
func (Center) Sample(f model.Frame) (model.Color, model.Rect, error) {
	r := Region(f.Width, f.Height)
	c, err := MeanColor(f, r)
	return c, r, err
}

// Region returns the centered rectangle whose sides are a quarter of the
// frame's. All arithmetic is integer division, so for sizes not divisible by
// 8 the rectangle rounds toward the center (w=10 gives x in [4,6)).
func Region(width, height int) model.Rect {
	cx, cy := width/2, height/2
	rw, rh := width/4, height/4
	return model.Rect{
		Min: image.Point{X: cx - rw/2, Y: cy - rh/2},
		Max: image.Point{X: cx + rw/2, Y: cy + rh/2},
	}
}

// MeanColor averages every pixel of f inside r, converting the frame's
// channel order to RGB. Each channel mean is truncated to an integer.
func MeanColor(f model.Frame, r model.Rect) (model.Color, error) {
	r = clip(r, f.Width, f.Height)
	if r.Empty() {
		return model.Color{}, errEmptyRegion
	}

	ri, gi, bi, err := channelOffsets(f.Format)
	if err != nil {
		return model.Color{}, err
	}
	bpp := f.Format.BytesPerPixel()
	stride := f.Width * bpp
	if len(f.Data) < stride*f.Height {
		return model.Color{}, fmt.Errorf("sampler: short frame: %d bytes for %dx%d %s", len(f.Data), f.Width, f.Height, f.Format)
	}

	var sr, sg, sb uint64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := f.Data[y*stride : (y+1)*stride]
		for x := r.Min.X; x < r.Max.X; x++ {
			px := row[x*bpp : x*bpp+bpp]
			sr += uint64(px[ri])
			sg += uint64(px[gi])
			sb += uint64(px[bi])
		}
	}

	n := uint64((r.Max.X - r.Min.X) * (r.Max.Y - r.Min.Y))
	return model.Color{R: uint8(sr / n), G: uint8(sg / n), B: uint8(sb / n)}, nil
}

func channelOffsets(f model.PixelFormat) (r, g, b int, err error) {
	switch f {
	case model.FormatRGB, model.FormatRGBA:
		return 0, 1, 2, nil
	case model.FormatBGR, model.FormatBGRA:
		return 2, 1, 0, nil
	default:
		return 0, 0, 0, fmt.Errorf("sampler: unsupported pixel format %s", f)
	}
}

func clip(r model.Rect, w, h int) model.Rect {
	b := image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y).Intersect(image.Rect(0, 0, w, h))
	return model.Rect{Min: b.Min, Max: b.Max}
}
