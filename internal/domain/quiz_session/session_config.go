package quizsession

import "time"

// SessionConfig holds the knobs of a quiz controller.
type SessionConfig struct {
	TickInterval time.Duration    // countdown granularity, one second of remaining time per tick
	Now          func() time.Time // timestamp source for attempt records
}

// DefaultConfig returns a one-second countdown stamped with wall-clock time.
func DefaultConfig() SessionConfig {
	return SessionConfig{
		TickInterval: time.Second,
		Now:          time.Now,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	def := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.Now == nil {
		c.Now = def.Now
	}
	return c
}
