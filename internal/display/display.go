package display

import (
	"context"
	"image/color"

	"github.com/crimson-sun/silverwatch/internal/model"
)

// Display consumes each processed frame together with its drawing directives.
type Display interface {
	Show(ctx context.Context, frame model.Frame, boxes []model.Box, overlays []model.Overlay) error
	Close() error
}

// Colors used for directives, in RGB.
var (
	RegionColor  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	AlertColor   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	WarningColor = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// RegionThickness is the outline width of the sampling-region box.
const RegionThickness = 2

// RegionBox returns the directive outlining the sampling region.
func RegionBox(r model.Rect) model.Box {
	return model.Box{Rect: r, Color: RegionColor, Thickness: RegionThickness}
}

// StyleColor maps an overlay style to its text color.
func StyleColor(s model.Style) color.RGBA {
	if s == model.StyleWarning {
		return WarningColor
	}
	return AlertColor
}

type discard struct{}

func (discard) Show(context.Context, model.Frame, []model.Box, []model.Overlay) error { return nil }
func (discard) Close() error                                                        { return nil }

// Discard is a Display that renders nothing.
var Discard Display = discard{}
