package model

import (
	"image"
	"image/color"
)

// Style selects the color scheme of an overlay text.
type Style int

const (
	StyleAlert Style = iota
	StyleWarning
)

// Anchor is the fixed on-screen position of alert and warning text.
var Anchor = image.Point{X: 50, Y: 50}

// Overlay asks the display to render text on the current frame.
type Overlay struct {
	Text      string
	Anchor    image.Point
	Style     Style
	Scale     float64
	Thickness int
}

// Box asks the display to outline a rectangle on the current frame.
type Box struct {
	Rect      Rect
	Color     color.RGBA
	Thickness int
}

// Outcome is the decision taken for one sample.
type Outcome struct {
	Result  Result
	Alert   *AlertEvent // nil unless Result.Matched
	Overlay Overlay
}
