package source

import (
	"context"
	"time"

	"github.com/crimson-sun/silverwatch/internal/model"
)

// Source yields decoded video frames one at a time.
type Source interface {
	// Next blocks until the next frame is available. found is false once the
	// stream has ended; the caller must stop pulling.
	Next(ctx context.Context) (frame model.Frame, found bool, err error)

	// Close releases the capture device or files.
	Close() error
}

// Config holds provider-specific source settings.
type Config struct {
	Provider string
	URI      string        // device, stream, file or directory location
	Loop     bool          // restart from the beginning at end of stream
	Interval time.Duration // minimum time between frames, 0 = as fast as available
}
