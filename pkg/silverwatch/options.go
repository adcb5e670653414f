package silverwatch

import "github.com/crimson-sun/silverwatch/internal/engine/classifier"

type options struct {
	references  []Reference
	paletteFile string
	threshold   *float64
}

// Option configures a Watcher.
type Option func(*options)

// WithPalette replaces the built-in palette. Order matters: when two
// references are equally close, the earlier one wins.
func WithPalette(refs []Reference) Option {
	return func(o *options) {
		o.references = refs
	}
}

// WithPaletteFile loads the palette (and its threshold, if present) from a
// YAML file. Takes precedence over WithPalette.
func WithPaletteFile(path string) Option {
	return func(o *options) {
		o.paletteFile = path
	}
}

// WithThreshold sets the maximum RGB distance that still counts as a match.
// Default: 15. Overrides a threshold stored in a palette file.
func WithThreshold(t float64) Option {
	return func(o *options) {
		o.threshold = &t
	}
}

func defaultThreshold() float64 {
	return classifier.DefaultThreshold
}
