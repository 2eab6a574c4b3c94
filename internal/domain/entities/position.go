package entities

import "time"

// Position is a single-shot location fix for the caller
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy_m,omitempty"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// PositionState is the outcome of a location request. Position is nil
// whenever Error is set.
type PositionState struct {
	Position *Position `json:"position"`
	Error    string    `json:"error,omitempty"`
}
