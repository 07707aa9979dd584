package model

import "time"

// ClockMode selects how the GameClock's virtual timestamp advances.
type ClockMode string

const (
	ClockSyncToWall   ClockMode = "sync-to-wall-clock"
	ClockStatic       ClockMode = "static"
	ClockRealTimeScaled ClockMode = "real-time-scaled"
	ClockManual       ClockMode = "manual"
)

// GameClock holds the virtual in-world timestamp advanced by the pipeline.
type GameClock struct {
	Mode       ClockMode `json:"mode"`
	Multiplier float64   `json:"multiplier,omitempty"`
	Virtual    time.Time `json:"virtual"`
}

// Advance moves the virtual clock forward by realElapsed, according to Mode.
func (c *GameClock) Advance(realElapsed time.Duration) {
	switch c.Mode {
	case ClockSyncToWall:
		c.Virtual = c.Virtual.Add(realElapsed)
	case ClockRealTimeScaled:
		mult := c.Multiplier
		if mult <= 0 {
			mult = 1
		}
		c.Virtual = c.Virtual.Add(time.Duration(float64(realElapsed) * mult))
	case ClockStatic, ClockManual:
		// Advances only via explicit SetVirtual calls (manual) or not at all (static).
	}
}

// SetVirtual overrides the virtual timestamp directly, used by manual mode
// and by rule actions that set the scene clock explicitly.
func (c *GameClock) SetVirtual(t time.Time) {
	c.Virtual = t
}
