package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/silverwatch/internal/display"
	"github.com/crimson-sun/silverwatch/internal/engine"
	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/output"
	"github.com/crimson-sun/silverwatch/internal/sampler"
	"github.com/crimson-sun/silverwatch/internal/source"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDisplay sets where annotated frames are shown. Default: display.Discard.
func WithDisplay(d display.Display) Option {
	return func(p *Pipeline) { p.display = d }
}

// WithSampler replaces the centre-region sampler.
func WithSampler(s sampler.Sampler) Option {
	return func(p *Pipeline) { p.sampler = s }
}

// WithClock sets the time source used to stamp alerts from frames that carry
// no capture time. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Frames          uint64
	Matched         uint64
	Unmatched       uint64
	SampleFailures  uint64
	PersistFailures uint64
	DisplayFailures uint64
}

// Pipeline connects a frame source, the engine, an output and a display.
// Frames are handled one at a time on the goroutine that calls Run.
type Pipeline struct {
	source  source.Source
	engine  *engine.Engine
	output  output.Output
	display display.Display
	sampler sampler.Sampler
	now     func() time.Time

	frames          atomic.Uint64
	matched         atomic.Uint64
	unmatched       atomic.Uint64
	sampleFailures  atomic.Uint64
	persistFailures atomic.Uint64
	displayFailures atomic.Uint64
}

// New creates a Pipeline from the given components.
func New(src source.Source, eng *engine.Engine, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:  src,
		engine:  eng,
		output:  out,
		display: display.Discard,
		sampler: sampler.Center{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process classifies one sample and persists the alert when it matched.
// A failed write is logged and counted; it never fails the call. The write
// runs to completion even if ctx is cancelled while it is in flight.
func (p *Pipeline) Process(ctx context.Context, sample model.Color, now time.Time) model.Outcome {
	out := p.engine.Process(sample, now)

	slog.Info("frame classified",
		"sample", sample.String(),
		"name", out.Result.Name,
		"alert_level", out.Result.Level,
		"distance", out.Result.Distance,
		"alert", out.Alert != nil,
	)

	if out.Alert == nil {
		p.unmatched.Add(1)
		return out
	}
	p.matched.Add(1)

	slog.Info("alert raised",
		"id", out.Alert.ID,
		"name", out.Alert.Name,
		"alert_level", out.Alert.Level,
		"sample", sample.String(),
	)
	if err := p.output.Write(context.WithoutCancel(ctx), *out.Alert); err != nil {
		p.persistFailures.Add(1)
		slog.Warn("alert not persisted", "id", out.Alert.ID, "alert_level", out.Alert.Level, "error", err)
		return out
	}
	slog.Info("alert persisted", "id", out.Alert.ID, "alert_level", out.Alert.Level)
	return out
}

// Run pulls frames until the source is exhausted, the source fails or ctx
// is cancelled. Cancellation is checked between frames, so a frame already
// being processed is finished first. End of stream and cancellation return
// nil; a source error is returned wrapped.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, found, err := p.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			slog.Error("frame read failed", "error", err)
			return fmt.Errorf("pipeline read: %w", err)
		}
		if !found {
			slog.Info("end of stream", "frames", p.frames.Load())
			return nil
		}

		p.handle(ctx, frame)
	}
}

func (p *Pipeline) handle(ctx context.Context, frame model.Frame) {
	p.frames.Add(1)

	sample, region, err := p.sampler.Sample(frame)
	if err != nil {
		p.sampleFailures.Add(1)
		slog.Warn("frame not sampled", "seq", frame.Seq, "trace_id", frame.TraceID, "error", err)
		return
	}

	ts := frame.Timestamp
	if ts.IsZero() {
		ts = p.now()
	}
	out := p.Process(ctx, sample, ts)

	boxes := []model.Box{display.RegionBox(region)}
	overlays := []model.Overlay{out.Overlay}
	if err := p.display.Show(context.WithoutCancel(ctx), frame, boxes, overlays); err != nil {
		p.displayFailures.Add(1)
		slog.Warn("frame not displayed", "seq", frame.Seq, "error", err)
	}
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Frames:          p.frames.Load(),
		Matched:         p.matched.Load(),
		Unmatched:       p.unmatched.Load(),
		SampleFailures:  p.sampleFailures.Load(),
		PersistFailures: p.persistFailures.Load(),
		DisplayFailures: p.displayFailures.Load(),
	}
}

// Close shuts down the output, display and source.
func (p *Pipeline) Close() error {
	return errors.Join(
		p.output.Close(),
		p.display.Close(),
		p.source.Close(),
	)
}
