package models

import (
	"time"
)

// Mode defines how a round decides termination.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeAuto || m == ModeManual
}

// Round represents one timed instance of the multiplier game.
// EndTime and CrashMultiplier are set exactly once, when the round closes.
type Round struct {
	ID              string     `json:"id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	CrashMultiplier *float64   `json:"crash_multiplier,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Closed reports whether the round already has an end time.
func (r Round) Closed() bool {
	return r.EndTime != nil
}
