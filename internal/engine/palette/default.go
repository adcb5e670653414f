package palette

import "github.com/crimson-sun/silverwatch/internal/model"

// DefaultEntries returns the reference palette for silver-ion water
// discoloration, in ascending severity.
func DefaultEntries() []model.PaletteEntry {
	return []model.PaletteEntry{
		{Name: "Sea Nymph", RGB: model.Color{R: 130, G: 159, B: 152}, Level: 1},
		{Name: "Metallic Seaweed", RGB: model.Color{R: 38, G: 127, B: 140}, Level: 2},
		{Name: "Metallic Seaweed", RGB: model.Color{R: 26, G: 127, B: 147}, Level: 3},
		{Name: "Regal Blue", RGB: model.Color{R: 0, G: 71, B: 119}, Level: 4},
		{Name: "Cod Grey", RGB: model.Color{R: 13, G: 12, B: 12}, Level: 5},
	}
}

// Default returns the built-in palette.
func Default() *Palette {
	p, err := New(DefaultEntries())
	if err != nil {
		panic(err) // built-in entries are static
	}
	return p
}
