package classifier

import (
	"fmt"
	"math"

	"github.com/crimson-sun/silverwatch/internal/engine/palette"
	"github.com/crimson-sun/silverwatch/internal/model"
)

// DefaultThreshold is the largest RGB distance still accepted as a match.
const DefaultThreshold = 15.0

// Classifier matches color samples against a fixed palette by nearest
// Euclidean distance. Safe for concurrent use.
type Classifier struct {
	palette   *palette.Palette
	threshold float64
}

// New creates a Classifier over p. A nil palette is reported as
// palette.ErrEmptyPalette so misconfiguration fails at startup.
func New(p *palette.Palette, threshold float64) (*Classifier, error) {
	if p == nil || p.Len() == 0 {
		return nil, palette.ErrEmptyPalette
	}
	if threshold < 0 || math.IsNaN(threshold) {
		return nil, fmt.Errorf("classifier: threshold must be >= 0, got %v", threshold)
	}
	return &Classifier{palette: p, threshold: threshold}, nil
}

// Threshold returns the match threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Palette returns the palette the classifier matches against.
func (c *Classifier) Palette() *palette.Palette {
	return c.palette
}

// Classify returns the nearest palette entry for sample. Equidistant entries
// resolve to the one declared first. If the nearest distance exceeds the
// threshold the result is unmatched; a distance equal to the threshold matches.
func (c *Classifier) Classify(sample model.Color) model.Result {
	best := 0
	bestDist := sample.Distance(c.palette.At(0).RGB)
	for i := 1; i < c.palette.Len(); i++ {
		d := sample.Distance(c.palette.At(i).RGB)
		if d < bestDist {
			best, bestDist = i, d
		}
	}

	if bestDist > c.threshold {
		return model.Result{Name: model.UnknownName, Distance: bestDist}
	}
	e := c.palette.At(best)
	return model.Result{Matched: true, Name: e.Name, Level: e.Level, Distance: bestDist}
}
