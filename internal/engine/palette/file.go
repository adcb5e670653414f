package palette

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/silverwatch/internal/model"
)

// Document is the on-disk YAML form of a palette:
//
//	threshold: 15.0
//	entries:
//	  - name: Sea Nymph
//	    rgb: [130, 159, 152]
//	    level: 1
type Document struct {
	Threshold *float64        `yaml:"threshold,omitempty"`
	Entries   []DocumentEntry `yaml:"entries"`
}

// DocumentEntry is one palette entry in a Document.
type DocumentEntry struct {
	Name  string `yaml:"name"`
	RGB   []int  `yaml:"rgb"`
	Level int    `yaml:"level"`
}

// Load reads a YAML palette file. The returned threshold is nil when the
// file does not set one.
func Load(path string) (*Palette, *float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("palette: read %s: %w", path, err)
	}
	p, th, err := Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (file %s)", err, path)
	}
	return p, th, nil
}

// Parse decodes a YAML palette document.
func Parse(data []byte) (*Palette, *float64, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("palette: decode: %w", err)
	}

	entries := make([]model.PaletteEntry, 0, len(doc.Entries))
	for i, de := range doc.Entries {
		c, err := toColor(de.RGB)
		if err != nil {
			return nil, nil, fmt.Errorf("palette: entry %d (%s): %w", i, de.Name, err)
		}
		entries = append(entries, model.PaletteEntry{Name: de.Name, RGB: c, Level: de.Level})
	}

	p, err := New(entries)
	if err != nil {
		return nil, nil, err
	}
	return p, doc.Threshold, nil
}

// Marshal encodes p (and an optional threshold) as a YAML document.
func Marshal(p *Palette, threshold *float64) ([]byte, error) {
	doc := Document{Threshold: threshold}
	for _, e := range p.entries {
		doc.Entries = append(doc.Entries, DocumentEntry{
			Name:  e.Name,
			RGB:   []int{int(e.RGB.R), int(e.RGB.G), int(e.RGB.B)},
			Level: e.Level,
		})
	}
	return yaml.Marshal(doc)
}

func toColor(rgb []int) (model.Color, error) {
	if len(rgb) != 3 {
		return model.Color{}, fmt.Errorf("rgb must have 3 channels, got %d", len(rgb))
	}
	for _, v := range rgb {
		if v < 0 || v > 255 {
			return model.Color{}, fmt.Errorf("rgb channel %d out of range [0,255]", v)
		}
	}
	return model.Color{R: uint8(rgb[0]), G: uint8(rgb[1]), B: uint8(rgb[2])}, nil
}
