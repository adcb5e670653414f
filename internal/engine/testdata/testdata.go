package testdata

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/crimson-sun/silverwatch/internal/model"
)

//go:embed corpus.json
var corpusJSON []byte

// CorpusEntry is a labeled color sample for classification validation.
// ExpectedLevel 0 means the sample must not match any palette entry.
type CorpusEntry struct {
	RGB           [3]uint8 `json:"rgb"`
	ExpectedName  string   `json:"expected_name"`
	ExpectedLevel int      `json:"expected_level"`
	Description   string   `json:"description"`
}

// Sample returns the entry's color.
func (e CorpusEntry) Sample() model.Color {
	return model.Color{R: e.RGB[0], G: e.RGB[1], B: e.RGB[2]}
}

// LoadCorpus parses the embedded corpus.json and returns all entries.
func LoadCorpus() ([]CorpusEntry, error) {
	var entries []CorpusEntry
	if err := json.Unmarshal(corpusJSON, &entries); err != nil {
		return nil, fmt.Errorf("parse corpus.json: %w", err)
	}
	return entries, nil
}
