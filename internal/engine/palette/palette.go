package palette

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/silverwatch/internal/model"
)

// ErrEmptyPalette is returned when a palette is built without entries.
var ErrEmptyPalette = errors.New("palette: no entries")

// Palette is an immutable, ordered list of reference colors.
// Safe for concurrent use.
type Palette struct {
	entries []model.PaletteEntry
}

// New validates entries and returns a Palette holding a private copy of them.
// Declaration order is preserved; classification ties resolve to the earlier entry.
func New(entries []model.PaletteEntry) (*Palette, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyPalette
	}

	var errs []error
	cp := make([]model.PaletteEntry, len(entries))
	for i, e := range entries {
		e.Name = normalizeName(e.Name)
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("palette: entry %d: empty name", i))
		}
		if e.Level <= 0 {
			errs = append(errs, fmt.Errorf("palette: entry %d (%s): level must be positive, got %d", i, e.Name, e.Level))
		}
		cp[i] = e
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Palette{entries: cp}, nil
}

// Entries returns a copy of the palette entries in declaration order.
func (p *Palette) Entries() []model.PaletteEntry {
	out := make([]model.PaletteEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Len returns the number of entries.
func (p *Palette) Len() int {
	return len(p.entries)
}

// At returns the i-th entry.
func (p *Palette) At(i int) model.PaletteEntry {
	return p.entries[i]
}

// normalizeName trims whitespace and converts to NFC so names typed in
// different editors compare and render identically.
func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
