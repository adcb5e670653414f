package model

import (
	"fmt"
	"image"
	"time"
)

// PixelFormat identifies the channel layout of Frame.Data.
type PixelFormat int

const (
	FormatRGB PixelFormat = iota
	FormatBGR
	FormatRGBA
	FormatBGRA
)

// BytesPerPixel returns the number of bytes one pixel occupies.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatRGBA, FormatBGRA:
		return 4
	default:
		return 3
	}
}

func (f PixelFormat) String() string {
	switch f {
	case FormatRGB:
		return "RGB"
	case FormatBGR:
		return "BGR"
	case FormatRGBA:
		return "RGBA"
	case FormatBGRA:
		return "BGRA"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// Frame is one decoded video frame as produced by a source.
type Frame struct {
	Seq       uint64
	Timestamp time.Time // capture time
	Width     int
	Height    int
	Format    PixelFormat
	Data      []byte // packed pixels, row-major, no padding
	TraceID   string
}

// Rect is a sampling region. Max is exclusive.
type Rect struct {
	Min image.Point
	Max image.Point
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y
}
