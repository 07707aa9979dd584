// Package timers maintains one tab's active-timer set: countdowns bound
// to rules, ticked on turn boundaries and a coarse real-time heartbeat,
// dispatched through the rule engine's timer phase on expiry.
package timers

import (
	"math/rand"
	"sync"

	"github.com/Valaery/worldengine/model"
)

// jitterFraction bounds the +/- randomization applied to a periodic
// timer's reset interval when Jitter is set.
const jitterFraction = 0.1

// Set holds one tab's active timers, partitioned by clock source: wall
// timers tick on the real-time heartbeat, game timers tick on the
// simulated GameClock's advance.
type Set struct {
	mu     sync.Mutex
	timers []*model.Timer
	rng    *rand.Rand
}

// New creates a Set seeded with timers restored from persistence (or none,
// for a fresh tab).
func New(restored []*model.Timer) *Set {
	return &Set{
		timers: append([]*model.Timer(nil), restored...),
		rng:    rand.New(rand.NewSource(1)),
	}
}

// Add registers a new timer, started by the rule engine's start_timer action.
func (s *Set) Add(t *model.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers = append(s.timers, t)
}

// Cancel removes the timer matching ruleID and key, reporting whether one
// was found.
func (s *Set) Cancel(ruleID, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.timers {
		if t.RuleID == ruleID && t.Key == key {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return true
		}
	}
	return false
}

// All returns a copy of the current timer table, for persistence.
func (s *Set) All() []*model.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Timer, len(s.timers))
	copy(out, s.timers)
	return out
}

// TickWall advances every wall-clock timer by elapsedMs, returning the
// ones that became due. Due one-shot timers are removed; due periodic
// timers are reset to their interval (+/- jitter).
func (s *Set) TickWall(elapsedMs int64) []*model.Timer {
	return s.tick(elapsedMs, false)
}

// TickGame advances every simulated-game-clock timer by elapsedMs, with
// the same due/reset/removal semantics as TickWall.
func (s *Set) TickGame(elapsedMs int64) []*model.Timer {
	return s.tick(elapsedMs, true)
}

func (s *Set) tick(elapsedMs int64, simulated bool) []*model.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*model.Timer
	kept := s.timers[:0]
	for _, t := range s.timers {
		if t.SimulatedClock != simulated {
			kept = append(kept, t)
			continue
		}
		t.RemainingMs -= elapsedMs
		if !t.Due() {
			kept = append(kept, t)
			continue
		}
		due = append(due, t)
		if t.OneShot {
			continue
		}
		t.RemainingMs = s.nextInterval(t)
		kept = append(kept, t)
	}
	s.timers = kept
	return due
}

func (s *Set) nextInterval(t *model.Timer) int64 {
	if !t.Jitter {
		return t.IntervalMs
	}
	spread := float64(t.IntervalMs) * jitterFraction
	delta := (s.rng.Float64()*2 - 1) * spread
	next := float64(t.IntervalMs) + delta
	if next < 0 {
		next = 0
	}
	return int64(next)
}
