package game

import "time"

// Config holds the timing constants of the round loop
type Config struct {
	TickInterval  time.Duration
	RoundDuration time.Duration
	// NaturalDelay separates a round that ended on its own from the next one
	NaturalDelay time.Duration
	// ForcedDelay separates a force-crashed round from the next one
	ForcedDelay time.Duration
	// NominalThreshold drives the displayed curve while the threshold is unbounded
	NominalThreshold float64
}

// DefaultConfig returns the reference timings
func DefaultConfig() Config {
	return Config{
		TickInterval:     100 * time.Millisecond,
		RoundDuration:    10 * time.Second,
		NaturalDelay:     10 * time.Second,
		ForcedDelay:      time.Second,
		NominalThreshold: 10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.RoundDuration <= 0 {
		c.RoundDuration = d.RoundDuration
	}
	if c.NaturalDelay <= 0 {
		c.NaturalDelay = d.NaturalDelay
	}
	if c.ForcedDelay <= 0 {
		c.ForcedDelay = d.ForcedDelay
	}
	if c.NominalThreshold <= 1 {
		c.NominalThreshold = d.NominalThreshold
	}
	return c
}
