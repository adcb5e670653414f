package silverwatch

import "time"

// Color is an RGB sample.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Event is the result of classifying one sample.
// This is the stable public type; internal representations may change
// without breaking consumers.
type Event struct {
	Matched   bool      `json:"matched"`
	Name      string    `json:"name"`               // reference name, or "Unknown"
	Level     int       `json:"level"`              // 0 when unmatched
	Distance  float64   `json:"distance"`           // to the nearest reference
	Text      string    `json:"text"`               // overlay caption
	Sample    Color     `json:"sample"`
	Timestamp time.Time `json:"timestamp"`
	AlertID   string    `json:"alert_id,omitempty"` // set when matched
}
