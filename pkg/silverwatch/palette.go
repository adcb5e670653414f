package silverwatch

import "github.com/crimson-sun/silverwatch/internal/model"

// Reference is one palette entry.
type Reference struct {
	Name  string
	Color Color
	Level int
}

// Palette returns the references in declaration order. The slice is a copy.
func (w *Watcher) Palette() []Reference {
	entries := w.engine.Classifier().Palette().Entries()
	refs := make([]Reference, len(entries))
	for i, e := range entries {
		refs[i] = Reference{Name: e.Name, Color: Color(e.RGB), Level: e.Level}
	}
	return refs
}

// DefaultPalette returns the built-in references.
func DefaultPalette() []Reference {
	var refs []Reference
	for _, e := range defaultEntries() {
		refs = append(refs, Reference{Name: e.Name, Color: Color(e.RGB), Level: e.Level})
	}
	return refs
}

func toEntries(refs []Reference) []model.PaletteEntry {
	entries := make([]model.PaletteEntry, len(refs))
	for i, r := range refs {
		entries[i] = model.PaletteEntry{Name: r.Name, RGB: model.Color(r.Color), Level: r.Level}
	}
	return entries
}
