package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crimson-sun/silverwatch/internal/display"
	"github.com/crimson-sun/silverwatch/internal/engine"
	"github.com/crimson-sun/silverwatch/internal/engine/classifier"
	"github.com/crimson-sun/silverwatch/internal/engine/palette"
	"github.com/crimson-sun/silverwatch/internal/logging"
	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/output/async"
)

// --- mocks ---

// sliceSource yields the given frames in order, then reports end of stream.
// If err is set it is returned once the frames are exhausted.
type sliceSource struct {
	frames []model.Frame
	err    error
	closed bool
	onNext func(i int)
	i      int
}

func (s *sliceSource) Next(ctx context.Context) (model.Frame, bool, error) {
	if s.onNext != nil {
		s.onNext(s.i)
	}
	if s.i >= len(s.frames) {
		if s.err != nil {
			return model.Frame{}, false, s.err
		}
		return model.Frame{}, false, nil
	}
	f := s.frames[s.i]
	s.i++
	return f, true, nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

type recordingOutput struct {
	mu     sync.Mutex
	alerts []model.AlertEvent
	err    error
	closed bool
}

func (o *recordingOutput) Write(_ context.Context, alert model.AlertEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.alerts = append(o.alerts, alert)
	return o.err
}

func (o *recordingOutput) Close() error {
	o.closed = true
	return nil
}

func (o *recordingOutput) snapshot() []model.AlertEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.AlertEvent(nil), o.alerts...)
}

// slowOutput takes delay to complete a write and gives up if ctx is done
// first, like the database sinks do.
type slowOutput struct {
	delay  time.Duration
	writes int
	err    error
}

func (o *slowOutput) Write(ctx context.Context, _ model.AlertEvent) error {
	t := time.NewTimer(o.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		o.err = ctx.Err()
		return o.err
	case <-t.C:
		o.writes++
		return nil
	}
}

func (o *slowOutput) Close() error { return nil }

type recordingDisplay struct {
	overlays []model.Overlay
	boxes    [][]model.Box
	err      error
	closed   bool
}

func (d *recordingDisplay) Show(_ context.Context, _ model.Frame, boxes []model.Box, overlays []model.Overlay) error {
	d.boxes = append(d.boxes, boxes)
	d.overlays = append(d.overlays, overlays...)
	return d.err
}

func (d *recordingDisplay) Close() error {
	d.closed = true
	return nil
}

// --- helpers ---

var (
	seaNymph = model.Color{R: 130, G: 159, B: 152}
	white    = model.Color{R: 255, G: 255, B: 255}
	regal    = model.Color{R: 0, G: 71, B: 119}
	codGrey  = model.Color{R: 13, G: 12, B: 12}
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cls, err := classifier.New(palette.Default(), classifier.DefaultThreshold)
	if err != nil {
		t.Fatalf("classifier.New() error: %v", err)
	}
	n := 0
	return engine.New(cls, engine.WithIDFunc(func() string {
		n++
		return "alert-" + strconv.Itoa(n)
	}))
}

// solidFrame returns a 16x16 RGB frame filled with c.
func solidFrame(seq uint64, c model.Color) model.Frame {
	data := make([]byte, 16*16*3)
	for i := 0; i < len(data); i += 3 {
		data[i], data[i+1], data[i+2] = c.R, c.G, c.B
	}
	return model.Frame{Seq: seq, Width: 16, Height: 16, Format: model.FormatRGB, Data: data}
}

func frames(colors ...model.Color) []model.Frame {
	out := make([]model.Frame, len(colors))
	for i, c := range colors {
		out[i] = solidFrame(uint64(i+1), c)
	}
	return out
}

func newTestPipeline(t *testing.T, src *sliceSource, out *recordingOutput, disp *recordingDisplay) *Pipeline {
	t.Helper()
	return New(src, newEngine(t), out,
		WithDisplay(disp),
		WithClock(func() time.Time { return fixedNow }),
	)
}

// --- tests ---

func TestProcessMatchedPersistsOnce(t *testing.T) {
	out := &recordingOutput{}
	p := New(&sliceSource{}, newEngine(t), out)

	res := p.Process(context.Background(), seaNymph, fixedNow)

	if !res.Result.Matched || res.Result.Level != 1 {
		t.Fatalf("unexpected result: %+v", res.Result)
	}
	if res.Overlay.Text != "Sea Nymph - Level 1" || res.Overlay.Style != model.StyleAlert {
		t.Fatalf("unexpected overlay: %+v", res.Overlay)
	}
	got := out.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected 1 write, got %d", len(got))
	}
	if got[0].Level != 1 || !got[0].Timestamp.Equal(fixedNow) {
		t.Errorf("persisted %+v", got[0])
	}
}

func TestProcessUnmatchedDoesNotPersist(t *testing.T) {
	out := &recordingOutput{}
	p := New(&sliceSource{}, newEngine(t), out)

	res := p.Process(context.Background(), white, fixedNow)

	if res.Result.Matched || res.Alert != nil {
		t.Fatalf("expected unmatched, got %+v", res)
	}
	if res.Overlay.Text != engine.UnknownText || res.Overlay.Style != model.StyleWarning {
		t.Fatalf("unexpected overlay: %+v", res.Overlay)
	}
	if n := len(out.snapshot()); n != 0 {
		t.Fatalf("expected no writes, got %d", n)
	}
	if s := p.Stats(); s.Unmatched != 1 || s.Matched != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestProcessPersistFailureIsSwallowed(t *testing.T) {
	out := &recordingOutput{err: errors.New("database unavailable")}
	p := New(&sliceSource{}, newEngine(t), out)

	res := p.Process(context.Background(), regal, fixedNow)
	if res.Result.Level != 4 || res.Overlay.Text != "Regal Blue - Level 4" {
		t.Fatalf("unexpected outcome: %+v", res)
	}
	if s := p.Stats(); s.PersistFailures != 1 {
		t.Errorf("PersistFailures = %d, want 1", s.PersistFailures)
	}
}

func TestRunProcessesEveryFrameInOrder(t *testing.T) {
	src := &sliceSource{frames: frames(seaNymph, white, regal, codGrey, white)}
	out := &recordingOutput{}
	disp := &recordingDisplay{}
	p := newTestPipeline(t, src, out, disp)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	alerts := out.snapshot()
	wantLevels := []int{1, 4, 5}
	if len(alerts) != len(wantLevels) {
		t.Fatalf("got %d alerts, want %d", len(alerts), len(wantLevels))
	}
	for i, lvl := range wantLevels {
		if alerts[i].Level != lvl {
			t.Errorf("alert %d level = %d, want %d", i, alerts[i].Level, lvl)
		}
	}
	if alerts[0].ID == alerts[1].ID {
		t.Error("alerts should carry distinct IDs")
	}

	wantText := []string{
		"Sea Nymph - Level 1",
		engine.UnknownText,
		"Regal Blue - Level 4",
		"Cod Grey - Level 5",
		engine.UnknownText,
	}
	if len(disp.overlays) != len(wantText) {
		t.Fatalf("got %d overlays, want %d", len(disp.overlays), len(wantText))
	}
	for i, txt := range wantText {
		if disp.overlays[i].Text != txt {
			t.Errorf("overlay %d = %q, want %q", i, disp.overlays[i].Text, txt)
		}
	}

	// Every frame gets the region outline: 16x16 -> (6,6)-(10,10).
	for i, boxes := range disp.boxes {
		if len(boxes) != 1 {
			t.Fatalf("frame %d: got %d boxes", i, len(boxes))
		}
		b := boxes[0]
		if b.Rect.Min.X != 6 || b.Rect.Min.Y != 6 || b.Rect.Max.X != 10 || b.Rect.Max.Y != 10 {
			t.Errorf("frame %d: region = %+v", i, b.Rect)
		}
		if b.Color != display.RegionColor {
			t.Errorf("frame %d: box color = %v", i, b.Color)
		}
	}

	s := p.Stats()
	if s.Frames != 5 || s.Matched != 3 || s.Unmatched != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestRunContinuesAfterPersistFailure(t *testing.T) {
	src := &sliceSource{frames: frames(seaNymph, regal, codGrey)}
	out := &recordingOutput{err: errors.New("connection refused")}
	disp := &recordingDisplay{}
	p := newTestPipeline(t, src, out, disp)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if n := len(out.snapshot()); n != 3 {
		t.Fatalf("expected a write attempt per matched frame, got %d", n)
	}
	if len(disp.overlays) != 3 {
		t.Fatalf("every frame should still be displayed, got %d", len(disp.overlays))
	}
	if s := p.Stats(); s.PersistFailures != 3 {
		t.Errorf("PersistFailures = %d, want 3", s.PersistFailures)
	}
}

func TestRunContinuesAfterDisplayFailure(t *testing.T) {
	src := &sliceSource{frames: frames(white, seaNymph)}
	out := &recordingOutput{}
	disp := &recordingDisplay{err: errors.New("window closed")}
	p := newTestPipeline(t, src, out, disp)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if n := len(out.snapshot()); n != 1 {
		t.Fatalf("expected 1 alert, got %d", n)
	}
	if s := p.Stats(); s.DisplayFailures != 2 || s.Frames != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestRunSkipsUnsampleableFrame(t *testing.T) {
	bad := model.Frame{Seq: 1, Width: 16, Height: 16, Format: model.FormatRGB, Data: []byte{1, 2, 3}}
	src := &sliceSource{frames: []model.Frame{bad, solidFrame(2, seaNymph)}}
	out := &recordingOutput{}
	disp := &recordingDisplay{}
	p := newTestPipeline(t, src, out, disp)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if s := p.Stats(); s.SampleFailures != 1 || s.Matched != 1 {
		t.Errorf("stats = %+v", s)
	}
	if len(disp.overlays) != 1 {
		t.Errorf("expected only the good frame to be displayed, got %d", len(disp.overlays))
	}
}

func TestRunEndOfStream(t *testing.T) {
	p := newTestPipeline(t, &sliceSource{}, &recordingOutput{}, &recordingDisplay{})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() on empty source: %v", err)
	}
	if s := p.Stats(); s.Frames != 0 {
		t.Errorf("Frames = %d, want 0", s.Frames)
	}
}

func TestRunSourceError(t *testing.T) {
	boom := errors.New("device unplugged")
	src := &sliceSource{frames: frames(seaNymph), err: boom}
	out := &recordingOutput{}
	p := newTestPipeline(t, src, out, &recordingDisplay{})

	err := p.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
	if n := len(out.snapshot()); n != 1 {
		t.Errorf("frames before the failure should be processed, got %d alerts", n)
	}
}

func TestRunStopsAtFrameBoundaryOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &sliceSource{frames: frames(seaNymph, seaNymph, seaNymph, seaNymph)}
	src.onNext = func(i int) {
		if i == 2 {
			cancel()
		}
	}
	out := &recordingOutput{}
	p := newTestPipeline(t, src, out, &recordingDisplay{})

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run() after cancel: %v", err)
	}
	// The frame pulled while cancelling is still finished.
	if s := p.Stats(); s.Frames != 3 {
		t.Errorf("Frames = %d, want 3", s.Frames)
	}
}

func TestProcessFinishesWriteWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &slowOutput{delay: 200 * time.Millisecond}
	p := New(&sliceSource{}, newEngine(t), out)

	time.AfterFunc(20*time.Millisecond, cancel)
	p.Process(ctx, seaNymph, fixedNow)

	if out.err != nil || out.writes != 1 {
		t.Fatalf("write interrupted: writes=%d err=%v", out.writes, out.err)
	}
	if s := p.Stats(); s.PersistFailures != 0 {
		t.Errorf("PersistFailures = %d, want 0", s.PersistFailures)
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, false, slog.LevelInfo))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestProcessLogsEveryFrameAtInfo(t *testing.T) {
	buf := captureLogs(t)
	p := New(&sliceSource{}, newEngine(t), &recordingOutput{})

	p.Process(context.Background(), white, fixedNow)
	logs := buf.String()
	if !strings.Contains(logs, "frame classified") || !strings.Contains(logs, "alert=false") {
		t.Fatalf("unmatched frame not reported at info:\n%s", logs)
	}

	buf.Reset()
	p.Process(context.Background(), seaNymph, fixedNow)
	logs = buf.String()
	for _, want := range []string{"frame classified", "alert raised", "alert persisted"} {
		if !strings.Contains(logs, want) {
			t.Errorf("missing %q in:\n%s", want, logs)
		}
	}
}

func TestProcessDoesNotReportPersistedOnFailure(t *testing.T) {
	buf := captureLogs(t)
	p := New(&sliceSource{}, newEngine(t), &recordingOutput{err: errors.New("database unavailable")})

	p.Process(context.Background(), regal, fixedNow)
	logs := buf.String()
	if strings.Contains(logs, "alert persisted") || !strings.Contains(logs, "alert not persisted") {
		t.Errorf("unexpected logs:\n%s", logs)
	}
}

func TestRunStampsAlertsWithCaptureTime(t *testing.T) {
	captured := time.Date(2026, 2, 14, 8, 30, 0, 0, time.UTC)
	stamped := solidFrame(1, seaNymph)
	stamped.Timestamp = captured
	src := &sliceSource{frames: []model.Frame{stamped, solidFrame(2, regal)}}
	out := &recordingOutput{}
	p := newTestPipeline(t, src, out, &recordingDisplay{})

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	alerts := out.snapshot()
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(alerts))
	}
	if !alerts[0].Timestamp.Equal(captured) {
		t.Errorf("alert 0 timestamp = %v, want capture time %v", alerts[0].Timestamp, captured)
	}
	if !alerts[1].Timestamp.Equal(fixedNow) {
		t.Errorf("alert 1 timestamp = %v, want clock fallback %v", alerts[1].Timestamp, fixedNow)
	}
}

func TestRunWithAsyncOutputPreservesOrder(t *testing.T) {
	colors := make([]model.Color, 0, 40)
	for i := 0; i < 10; i++ {
		colors = append(colors, seaNymph, regal, white, codGrey)
	}
	src := &sliceSource{frames: frames(colors...)}
	inner := &recordingOutput{}
	p := New(src, newEngine(t), async.New(inner, async.WithBufferSize(4)),
		WithClock(func() time.Time { return fixedNow }))

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	alerts := inner.snapshot()
	if len(alerts) != 30 {
		t.Fatalf("got %d alerts, want 30", len(alerts))
	}
	want := []int{1, 4, 5}
	for i, a := range alerts {
		if a.Level != want[i%3] {
			t.Fatalf("alert %d level = %d, want %d", i, a.Level, want[i%3])
		}
		if a.ID != "alert-"+strconv.Itoa(i+1) {
			t.Fatalf("alert %d id = %q", i, a.ID)
		}
	}
}

func TestCloseClosesEverything(t *testing.T) {
	src := &sliceSource{}
	out := &recordingOutput{}
	disp := &recordingDisplay{}
	p := newTestPipeline(t, src, out, disp)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !src.closed || !out.closed || !disp.closed {
		t.Errorf("closed: source=%v output=%v display=%v", src.closed, out.closed, disp.closed)
	}
}
