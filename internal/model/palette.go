package model

// PaletteEntry is a named reference color tagged with a severity level.
type PaletteEntry struct {
	Name  string
	RGB   Color
	Level int // 1 is the least severe
}
