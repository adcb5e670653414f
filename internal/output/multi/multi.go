package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/output"
)

// Sink is a named output. The name prefixes any error it returns.
type Sink struct {
	Name   string
	Output output.Output
}

// Multi fans out alerts to several sinks in declaration order.
// A failing sink does not prevent delivery to the ones after it.
type Multi struct {
	sinks []Sink
}

// New creates a Multi over the given sinks.
func New(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Write delivers the alert to every sink and joins their errors.
func (m *Multi) Write(ctx context.Context, alert model.AlertEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Output.Write(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Names lists the sinks in delivery order.
func (m *Multi) Names() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name
	}
	return names
}

// Close closes every sink, last opened first.
func (m *Multi) Close() error {
	var errs []error
	for i := len(m.sinks) - 1; i >= 0; i-- {
		if err := m.sinks[i].Output.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.sinks[i].Name, err))
		}
	}
	return errors.Join(errs...)
}
