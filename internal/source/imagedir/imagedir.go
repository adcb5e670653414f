package imagedir

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/source"
)

func init() {
	source.Register("imagedir", func(cfg source.Config) (source.Source, error) {
		return New(cfg)
	})
}

var extensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".bmp": true}

// Source replays still images from a directory in lexical file-name order.
// Each file becomes one frame; unreadable files are skipped with a warning.
type Source struct {
	dir      string
	files    []string
	next     int
	seq      uint64
	loop     bool
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// New lists image files under cfg.URI. An empty directory is an error.
func New(cfg source.Config) (*Source, error) {
	dir := strings.TrimPrefix(cfg.URI, "file://")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("imagedir: read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("imagedir: no images in %s", dir)
	}
	sort.Strings(files)

	return &Source{
		dir:      dir,
		files:    files,
		loop:     cfg.Loop,
		interval: cfg.Interval,
		now:      time.Now,
	}, nil
}

// Next decodes the next image. At the end of the directory it reports
// found=false, or starts over when looping. When looping and a full pass
// over the directory decodes nothing, it returns an error.
func (s *Source) Next(ctx context.Context) (model.Frame, bool, error) {
	failed := 0
	for {
		if err := ctx.Err(); err != nil {
			return model.Frame{}, false, err
		}
		if s.next >= len(s.files) {
			if !s.loop {
				return model.Frame{}, false, nil
			}
			s.next = 0
		}
		if err := s.pace(ctx); err != nil {
			return model.Frame{}, false, err
		}

		path := s.files[s.next]
		s.next++
		img, err := decode(path)
		if err != nil {
			slog.Warn("imagedir: skipping unreadable image", "path", path, "error", err)
			failed++
			if s.loop && failed >= len(s.files) {
				return model.Frame{}, false, fmt.Errorf("imagedir: no decodable images in %s", s.dir)
			}
			continue
		}

		s.seq++
		s.last = s.now()
		return toFrame(img, s.seq, s.last), true, nil
	}
}

// Close is a no-op; files are opened and closed per frame.
func (s *Source) Close() error {
	return nil
}

// Len returns the number of images found.
func (s *Source) Len() int {
	return len(s.files)
}

func (s *Source) pace(ctx context.Context) error {
	if s.interval <= 0 || s.last.IsZero() {
		return nil
	}
	wait := s.interval - s.now().Sub(s.last)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// toFrame converts any decoded image to a packed RGBA frame. Alpha is
// dropped: pixels keep their straight colour and are marked opaque, so
// translucency does not darken the sample.
func toFrame(img image.Image, seq uint64, ts time.Time) model.Frame {
	b := img.Bounds()
	straight := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(straight, straight.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(straight.Pix); i += 4 {
		straight.Pix[i] = 0xff
	}
	return model.Frame{
		Seq:       seq,
		Timestamp: ts,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Format:    model.FormatRGBA,
		Data:      straight.Pix,
		TraceID:   uuid.NewString(),
	}
}
