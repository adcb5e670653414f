package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/silverwatch/internal/engine/classifier"
	"github.com/crimson-sun/silverwatch/internal/model"
)

// UnknownText is the overlay shown when a sample matches no palette entry.
const UnknownText = "Unknown Color Detected"

// Option configures an Engine.
type Option func(*Engine)

// WithIDFunc overrides alert ID generation. Default: random UUIDv4.
func WithIDFunc(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// Engine turns a color sample into a decision: the classification, the alert
// to persist (if any), and the overlay to show. It performs no I/O and keeps
// no state between calls.
type Engine struct {
	classifier *classifier.Classifier
	newID      func() string
}

// New creates an Engine around the given classifier.
func New(cls *classifier.Classifier, opts ...Option) *Engine {
	e := &Engine{
		classifier: cls,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classifier returns the underlying classifier.
func (e *Engine) Classifier() *classifier.Classifier {
	return e.classifier
}

// Process classifies sample and builds the outcome for a frame captured at now.
// A matched sample always yields exactly one alert; an unmatched one never does.
func (e *Engine) Process(sample model.Color, now time.Time) model.Outcome {
	res := e.classifier.Classify(sample)

	if !res.Matched {
		return model.Outcome{
			Result:  res,
			Overlay: overlay(UnknownText, model.StyleWarning),
		}
	}

	return model.Outcome{
		Result: res,
		Alert: &model.AlertEvent{
			ID:        e.newID(),
			Timestamp: now,
			Level:     res.Level,
			Name:      res.Name,
			Sample:    sample,
		},
		Overlay: overlay(AlertText(res.Name, res.Level), model.StyleAlert),
	}
}

// AlertText formats the overlay text for a matched entry.
func AlertText(name string, level int) string {
	return fmt.Sprintf("%s - Level %d", name, level)
}

func overlay(text string, style model.Style) model.Overlay {
	return model.Overlay{
		Text:      text,
		Anchor:    model.Anchor,
		Style:     style,
		Scale:     1,
		Thickness: 2,
	}
}
