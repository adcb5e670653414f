package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/output"
)

const (
	defaultBufferSize   = 64
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async output: closed")

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the queue capacity. Default: 64.
func WithBufferSize(n int) Option {
	return func(a *Async) {
		if n > 0 {
			a.bufSize = n
		}
	}
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write return immediately (dropping the alert) when the
// queue is full, instead of blocking.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// WithDrainTimeout bounds how long Close waits for queued alerts. Default: 5s.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) {
		if d > 0 {
			a.drainTimeout = d
		}
	}
}

// Async decouples the frame loop from sink latency with a bounded FIFO
// queue. A single goroutine drains the queue into the wrapped output, so
// alerts reach the sink in the order they were written. Sink errors go to
// errFunc and are not returned from Write.
type Async struct {
	inner        output.Output
	ch           chan model.AlertEvent
	done         chan struct{}
	errFunc      func(error)
	bufSize      int
	dropOnFull   bool
	drainTimeout time.Duration

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	dropped   atomic.Uint64
}

// New wraps inner in an async queue. The drain goroutine starts immediately.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(err error) { slog.Warn("async output write error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan model.AlertEvent, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write queues the alert. By default it blocks while the queue is full
// (back-pressure) until space frees up or ctx is done. With WithDropOnFull
// it returns nil immediately and the alert is lost.
func (a *Async) Write(ctx context.Context, alert model.AlertEvent) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	if a.dropOnFull {
		select {
		case a.ch <- alert:
		default:
			a.dropped.Add(1)
			slog.Warn("async output queue full, dropping alert",
				"id", alert.ID, "alert_level", alert.Level)
		}
		return nil
	}

	select {
	case a.ch <- alert:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns the number of alerts discarded because the queue was full.
func (a *Async) Dropped() uint64 { return a.dropped.Load() }

// Close stops accepting alerts, waits for the queue to drain (bounded by
// the drain timeout), then closes the inner output.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.ch)
		a.mu.Unlock()

		select {
		case <-a.done:
		case <-time.After(a.drainTimeout):
			slog.Warn("async output drain timed out", "pending", len(a.ch))
		}
		err = a.inner.Close()
	})
	return err
}

func (a *Async) drain() {
	defer close(a.done)
	for alert := range a.ch {
		if err := a.inner.Write(context.Background(), alert); err != nil {
			a.errFunc(err)
		}
	}
}
