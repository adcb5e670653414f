package saver

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/crimson-sun/silverwatch/internal/display"
	"github.com/crimson-sun/silverwatch/internal/model"
)

// Saver writes annotated frames to disk as PNG or JPEG.
//
// Filename format: frame_{seq:06d}_{timestamp}.{ext}
// Example: frame_000042_20260301_120000.123.png
type Saver struct {
	outputDir     string
	format        string
	jpegQuality   int
	every         uint64
	shown         atomic.Uint64
	framesSaved   atomic.Uint64
	framesDropped atomic.Uint64
}

// New creates a saver that keeps one of every `every` frames.
//
// Format: "png" or "jpeg"
// JPEGQuality: 1-100 (only used for JPEG)
func New(outputDir, format string, jpegQuality, every int) (*Saver, error) {
	if format != "png" && format != "jpeg" {
		return nil, fmt.Errorf("saver: unsupported format: %s (must be png or jpeg)", format)
	}
	if every < 1 {
		every = 1
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("saver: create output directory: %w", err)
	}
	return &Saver{
		outputDir:   outputDir,
		format:      format,
		jpegQuality: jpegQuality,
		every:       uint64(every),
	}, nil
}

// Show renders the directives onto the frame and saves it when the frame
// falls on the sampling interval.
func (s *Saver) Show(_ context.Context, frame model.Frame, boxes []model.Box, overlays []model.Overlay) error {
	n := s.shown.Add(1)
	if (n-1)%s.every != 0 {
		return nil
	}

	img, err := display.Render(frame, boxes, overlays)
	if err != nil {
		s.framesDropped.Add(1)
		return fmt.Errorf("saver: render: %w", err)
	}

	name := fmt.Sprintf("frame_%06d_%s.%s",
		frame.Seq,
		frame.Timestamp.Format("20060102_150405.000"),
		s.format)
	path := filepath.Join(s.outputDir, name)

	f, err := os.Create(path)
	if err != nil {
		s.framesDropped.Add(1)
		return fmt.Errorf("saver: create file: %w", err)
	}
	defer f.Close()

	switch s.format {
	case "png":
		err = png.Encode(f, img)
	case "jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: s.jpegQuality})
	}
	if err != nil {
		s.framesDropped.Add(1)
		return fmt.Errorf("saver: encode %s: %w", s.format, err)
	}

	s.framesSaved.Add(1)
	return nil
}

// Close is a no-op; files are closed after each write.
func (s *Saver) Close() error {
	return nil
}

// Stats returns current save statistics.
func (s *Saver) Stats() (saved, dropped uint64) {
	return s.framesSaved.Load(), s.framesDropped.Load()
}
