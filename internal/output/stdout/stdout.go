package stdout

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/output"
)

// Output writes JSON-encoded alerts, one per line.
type Output struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// New creates an Output on w (normally os.Stdout), optionally pretty-printed.
func New(w io.Writer, pretty bool) *Output {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc}
}

func (o *Output) Write(_ context.Context, alert model.AlertEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return output.Fail("stdout", "encode", o.enc.Encode(alert))
}

func (o *Output) Close() error {
	return nil
}
