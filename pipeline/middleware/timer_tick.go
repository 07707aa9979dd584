package middleware

import (
	"context"
	"time"

	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/pipeline"
	"github.com/Valaery/worldengine/rules"
	"github.com/Valaery/worldengine/timers"
	"github.com/Valaery/worldengine/worldstore"
)

// TimerTick implements the turn pipeline's thirteenth and final step:
// advance both clock sources by the elapsed real time since the last
// turn, and dispatch the bound rule for every timer that became due
// through the Rule Engine's timer phase before the tab returns to Idle.
// The coarse real-time heartbeat (timers.Heartbeat) covers the
// between-turns case; this middleware covers the turn-boundary case the
// spec names separately.
type TimerTick struct {
	Store      *worldstore.Store
	Timers     *timers.Set
	Engine     *rules.Engine
	Classifier rules.Classifier
	lastTick   time.Time
}

func (m *TimerTick) Name() string { return "timer_tick" }

func (m *TimerTick) Process(tc *pipeline.Context, next func() error) error {
	now := time.Now()
	if m.lastTick.IsZero() {
		m.lastTick = now
	}
	elapsed := now.Sub(m.lastTick)
	m.lastTick = now

	clock := m.Store.Clock()
	clock.Advance(elapsed)
	m.Store.SetClock(clock)

	elapsedMs := elapsed.Milliseconds()
	due := m.Timers.TickWall(elapsedMs)
	due = append(due, m.Timers.TickGame(elapsedMs)...)
	if len(due) == 0 {
		return next()
	}

	for _, t := range due {
		tc.Trace.event("timer_due", t.RuleID)
		tc.Emitter.TimerFired(t.RuleID)
	}

	res := m.Engine.Apply(context.Background(), m.Store, model.PhaseTimer, model.ScopeNarrator, "", m.Classifier)
	if err := m.Store.ApplyChangeSet(res.ChangeSet); err != nil {
		tc.Trace.event("timer_rule_failed", err.Error())
		return next()
	}
	tc.Trace.event("timer_fired", "")
	tc.Emitter.StateChanged(changedKeys(res.ChangeSet))

	return next()
}
