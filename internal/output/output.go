package output

import (
	"context"
	"fmt"

	"github.com/crimson-sun/silverwatch/internal/model"
)

// Output persists alert events. Implementations make one attempt per
// alert; retrying is left to the caller.
type Output interface {
	Write(ctx context.Context, alert model.AlertEvent) error
	Close() error
}

// StorageError reports a failed sink operation.
type StorageError struct {
	Sink string // e.g. "mysql", "kafka"
	Op   string // e.g. "connect", "insert", "publish"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s output: %s: %v", e.Sink, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Fail builds a *StorageError, or returns nil when err is nil.
func Fail(sink, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Sink: sink, Op: op, Err: err}
}
