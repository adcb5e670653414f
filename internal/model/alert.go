package model

import "time"

// AlertEvent is the record handed to storage for every matched frame.
type AlertEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"event_time"`
	Level     int       `json:"alert_level"`
	Name      string    `json:"name"`
	Sample    Color     `json:"sample"`
}
