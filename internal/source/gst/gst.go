package gst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/source"
)

func init() {
	source.Register("gst", func(cfg source.Config) (source.Source, error) {
		return New(cfg)
	})
}

var initOnce sync.Once

// Source captures frames from a GStreamer pipeline through an appsink.
// Frames are pulled synchronously: Next blocks until GStreamer has a sample.
type Source struct {
	uri      string
	pipeline *gst.Pipeline
	sink     *app.Sink
	seq      uint64
	closeMu  sync.Mutex
	closed   bool
}

// New builds and starts the pipeline for cfg.URI.
func New(cfg source.Config) (*Source, error) {
	desc, live, err := launchDescription(cfg.URI)
	if err != nil {
		return nil, err
	}

	initOnce.Do(func() { gst.Init(nil) })

	slog.Debug("gst: creating pipeline", "pipeline", desc)
	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, fmt.Errorf("gst: create pipeline: %w", err)
	}

	elem, err := pipeline.GetElementByName(sinkName)
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("gst: find appsink: %w", err)
	}
	sink := app.SinkFromElement(elem)
	if sink == nil {
		pipeline.SetState(gst.StateNull)
		return nil, errors.New("gst: element \"sink\" is not an appsink")
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("gst: start pipeline: %w", err)
	}

	slog.Info("gst: capture started", "uri", cfg.URI, "live", live)
	return &Source{uri: cfg.URI, pipeline: pipeline, sink: sink}, nil
}

// Next pulls the next RGB frame. End of stream reports found=false.
func (s *Source) Next(ctx context.Context) (model.Frame, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Frame{}, false, err
	}

	sample := s.sink.PullSample()
	if sample == nil {
		if s.sink.IsEOS() {
			slog.Info("gst: end of stream", "uri", s.uri)
			return model.Frame{}, false, nil
		}
		return model.Frame{}, false, fmt.Errorf("gst: pull sample from %s failed", s.uri)
	}

	width, height, err := sampleSize(sample)
	if err != nil {
		return model.Frame{}, false, err
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		return model.Frame{}, false, errors.New("gst: sample without buffer")
	}
	mapInfo := buffer.Map(gst.MapRead)
	// GStreamer reuses the buffer after Unmap.
	frameData, err := packRows(mapInfo.Bytes(), width, height)
	buffer.Unmap()
	if err != nil {
		return model.Frame{}, false, err
	}

	s.seq++
	return model.Frame{
		Seq:       s.seq,
		Timestamp: time.Now(),
		Width:     width,
		Height:    height,
		Format:    model.FormatRGB,
		Data:      frameData,
		TraceID:   uuid.NewString(),
	}, true, nil
}

// Close stops the pipeline. Safe to call more than once.
func (s *Source) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("gst: stop pipeline: %w", err)
	}
	return nil
}

func sampleSize(sample *gst.Sample) (int, int, error) {
	caps := sample.GetCaps()
	if caps == nil || caps.GetSize() == 0 {
		return 0, 0, errors.New("gst: sample without caps")
	}
	st := caps.GetStructureAt(0)
	w, err := intField(st, "width")
	if err != nil {
		return 0, 0, err
	}
	h, err := intField(st, "height")
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

func intField(st *gst.Structure, name string) (int, error) {
	val, err := st.GetValue(name)
	if err != nil {
		return 0, fmt.Errorf("gst: caps field %s: %w", name, err)
	}
	v, ok := val.(int)
	if !ok {
		return 0, fmt.Errorf("gst: caps field %s has type %T", name, val)
	}
	return v, nil
}

// packRows copies an RGB buffer, dropping the per-row padding GStreamer adds
// to keep rows 4-byte aligned.
func packRows(data []byte, width, height int) ([]byte, error) {
	row := width * 3
	if height <= 0 || len(data) < row*height {
		return nil, fmt.Errorf("gst: buffer of %d bytes too small for %dx%d RGB", len(data), width, height)
	}
	stride := len(data) / height
	out := make([]byte, row*height)
	if stride == row {
		copy(out, data)
		return out, nil
	}
	for y := 0; y < height; y++ {
		copy(out[y*row:(y+1)*row], data[y*stride:y*stride+row])
	}
	return out, nil
}
