package silverwatch

import (
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/crimson-sun/silverwatch/internal/engine"
	"github.com/crimson-sun/silverwatch/internal/engine/classifier"
	"github.com/crimson-sun/silverwatch/internal/engine/palette"
	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/sampler"
)

var defaultEntries = palette.DefaultEntries

// Watcher classifies colour samples. Safe for concurrent use.
type Watcher struct {
	engine *engine.Engine
}

// New creates a Watcher with the built-in palette unless options say
// otherwise.
func New(opts ...Option) (*Watcher, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	pal := palette.Default()
	threshold := defaultThreshold()

	switch {
	case o.paletteFile != "":
		p, t, err := palette.Load(o.paletteFile)
		if err != nil {
			return nil, fmt.Errorf("silverwatch: %w", err)
		}
		pal = p
		if t != nil {
			threshold = *t
		}
	case o.references != nil:
		p, err := palette.New(toEntries(o.references))
		if err != nil {
			return nil, fmt.Errorf("silverwatch: %w", err)
		}
		pal = p
	}
	if o.threshold != nil {
		threshold = *o.threshold
	}

	cls, err := classifier.New(pal, threshold)
	if err != nil {
		return nil, fmt.Errorf("silverwatch: %w", err)
	}
	return &Watcher{engine: engine.New(cls)}, nil
}

// Threshold returns the match tolerance in use.
func (w *Watcher) Threshold() float64 {
	return w.engine.Classifier().Threshold()
}

// Classify classifies one sample, stamped with the current time.
func (w *Watcher) Classify(c Color) Event {
	return w.classify(c, time.Now())
}

// ClassifyBatch classifies several samples sharing one timestamp.
func (w *Watcher) ClassifyBatch(samples []Color) []Event {
	now := time.Now()
	events := make([]Event, len(samples))
	for i, c := range samples {
		events[i] = w.classify(c, now)
	}
	return events
}

// ClassifyImage samples the centre region of img (a quarter of each side)
// and classifies its mean colour.
func (w *Watcher) ClassifyImage(img image.Image) (Event, error) {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	frame := model.Frame{Width: b.Dx(), Height: b.Dy(), Format: model.FormatRGBA, Data: rgba.Pix}
	c, _, err := sampler.Center{}.Sample(frame)
	if err != nil {
		return Event{}, fmt.Errorf("silverwatch: %w", err)
	}
	return w.classify(Color(c), time.Now()), nil
}

func (w *Watcher) classify(c Color, now time.Time) Event {
	out := w.engine.Process(model.Color(c), now)
	ev := Event{
		Matched:   out.Result.Matched,
		Name:      out.Result.Name,
		Level:     out.Result.Level,
		Distance:  out.Result.Distance,
		Text:      out.Overlay.Text,
		Sample:    c,
		Timestamp: now,
	}
	if out.Alert != nil {
		ev.AlertID = out.Alert.ID
	}
	return ev
}
