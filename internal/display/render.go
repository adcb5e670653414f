package display

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/crimson-sun/silverwatch/internal/model"
)

// textScale converts an overlay scale to a multiple of the 13px base font,
// so Scale 1 renders text roughly 22px tall.
const textScale = 1.7

// Render converts frame to RGBA and draws the directives on it.
func Render(frame model.Frame, boxes []model.Box, overlays []model.Overlay) (*image.RGBA, error) {
	img, err := ToRGBA(frame)
	if err != nil {
		return nil, err
	}
	for _, b := range boxes {
		drawBox(img, b)
	}
	for _, o := range overlays {
		drawText(img, o)
	}
	return img, nil
}

// ToRGBA copies a frame of any supported pixel format into an image.RGBA.
func ToRGBA(frame model.Frame) (*image.RGBA, error) {
	bpp := frame.Format.BytesPerPixel()
	n := frame.Width * frame.Height
	if len(frame.Data) < n*bpp {
		return nil, fmt.Errorf("display: invalid frame data size: got %d, expected %d", len(frame.Data), n*bpp)
	}

	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for i := 0; i < n; i++ {
		src := frame.Data[i*bpp : i*bpp+bpp]
		dst := img.Pix[i*4 : i*4+4]
		switch frame.Format {
		case model.FormatRGB, model.FormatRGBA:
			dst[0], dst[1], dst[2] = src[0], src[1], src[2]
		case model.FormatBGR, model.FormatBGRA:
			dst[0], dst[1], dst[2] = src[2], src[1], src[0]
		default:
			return nil, fmt.Errorf("display: unsupported pixel format %s", frame.Format)
		}
		dst[3] = 255
	}
	return img, nil
}

// drawBox outlines b.Rect inward by b.Thickness pixels.
func drawBox(img *image.RGBA, b model.Box) {
	r := image.Rect(b.Rect.Min.X, b.Rect.Min.Y, b.Rect.Max.X, b.Rect.Max.Y)
	src := image.NewUniform(b.Color)
	for t := 0; t < b.Thickness; t++ {
		inner := r.Inset(t)
		if inner.Empty() {
			return
		}
		edges := []image.Rectangle{
			image.Rect(inner.Min.X, inner.Min.Y, inner.Max.X, inner.Min.Y+1),
			image.Rect(inner.Min.X, inner.Max.Y-1, inner.Max.X, inner.Max.Y),
			image.Rect(inner.Min.X, inner.Min.Y, inner.Min.X+1, inner.Max.Y),
			image.Rect(inner.Max.X-1, inner.Min.Y, inner.Max.X, inner.Max.Y),
		}
		for _, e := range edges {
			draw.Draw(img, e.Intersect(img.Bounds()), src, image.Point{}, draw.Src)
		}
	}
}

// drawText renders o.Text with its baseline starting at o.Anchor.
func drawText(img *image.RGBA, o model.Overlay) {
	if o.Text == "" {
		return
	}
	face := basicfont.Face7x13
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := metrics.Height.Ceil()
	width := font.MeasureString(face, o.Text).Ceil()

	thickness := max(o.Thickness, 1)
	glyphs := image.NewRGBA(image.Rect(0, 0, width+thickness-1, height))
	d := &font.Drawer{Dst: glyphs, Src: image.NewUniform(StyleColor(o.Style)), Face: face}
	for t := 0; t < thickness; t++ {
		d.Dot = fixed.P(t, ascent)
		d.DrawString(o.Text)
	}

	scale := o.Scale
	if scale <= 0 {
		scale = 1
	}
	factor := scale * textScale
	w := int(math.Round(float64(glyphs.Bounds().Dx()) * factor))
	h := int(math.Round(float64(height) * factor))
	top := o.Anchor.Y - int(math.Round(float64(ascent)*factor))
	dst := image.Rect(o.Anchor.X, top, o.Anchor.X+w, top+h)
	draw.NearestNeighbor.Scale(img, dst, glyphs, glyphs.Bounds(), draw.Over, nil)
}
