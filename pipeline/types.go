// Package pipeline drives one tab's turn through its thirteen-step
// algorithm: a fixed chain of middleware, each implementing one step,
// invoked through the same explicit next()-chaining contract the runtime
// uses elsewhere, bounded by a tab-wide concurrency cap and a graceful
// shutdown drain.
package pipeline

import (
	"time"

	"github.com/Valaery/worldengine/events"
	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/rules"
	"github.com/Valaery/worldengine/types"
	"github.com/Valaery/worldengine/validators"
	"github.com/Valaery/worldengine/workflow"
)

// Config bounds a Pipeline's resource usage.
type Config struct {
	MaxConcurrentTurns      int64         // across all tabs sharing this process; 0 means DefaultMaxConcurrentTurns
	TurnTimeout             time.Duration // 0 means DefaultTurnTimeout
	GracefulShutdownTimeout time.Duration // 0 means DefaultGracefulShutdownTimeout
}

const (
	DefaultMaxConcurrentTurns      = 8
	DefaultTurnTimeout             = 3 * time.Minute
	DefaultGracefulShutdownTimeout = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxConcurrentTurns <= 0 {
		c.MaxConcurrentTurns = DefaultMaxConcurrentTurns
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = DefaultTurnTimeout
	}
	if c.GracefulShutdownTimeout <= 0 {
		c.GracefulShutdownTimeout = DefaultGracefulShutdownTimeout
	}
	return c
}

// Input is what the host passes in to start a turn.
type Input struct {
	PlayerKey string // the acting player's actor key
	Text      string
}

// TraceEvent records one notable occurrence during a turn, for diagnostics
// and for the event bus to republish.
type TraceEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
}

// LLMCall records one gateway round trip made during the turn.
type LLMCall struct {
	Stage     string        `json:"stage"` // "intent", "narrator", "npc:<key>", "note:<key>"
	Model     string        `json:"model"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Trace accumulates every notable event and LLM call across one turn.
type Trace struct {
	Events    []TraceEvent
	LLMCalls  []LLMCall
	StartedAt time.Time
	Completed time.Time
}

func (t *Trace) event(typ, msg string) {
	t.Events = append(t.Events, TraceEvent{Type: typ, Timestamp: time.Now(), Message: msg})
}

func (t *Trace) call(c LLMCall) {
	t.LLMCalls = append(t.LLMCalls, c)
}

// Context is the per-turn working state threaded through the middleware
// chain. Exactly one exists per ExecuteTurn call; middleware read and
// mutate it in place.
type Context struct {
	TabID string
	Turn  int
	Scene int
	Input Input

	Intent validators.Intent

	ShortCircuited bool // pre-validation rejected the action; narrator inference is skipped

	PreRules        rules.Result
	NarratorMessages []types.Message // assembled by NarratorContext, consumed by NarratorInference
	NarratorText    string
	PostRules       rules.Result
	PostRetries     int // post-validation re-invocations spent this turn

	NPCOutputs []model.TurnRecord

	Cancelled bool
	Machine   *workflow.StateMachine

	Trace   Trace
	Emitter *events.Emitter // nil when the host hasn't wired an event bus
}

// Result is what ExecuteTurn returns to the host.
type Result struct {
	NarratorText string
	NPCOutputs   []model.TurnRecord
	FinalState   string
	Trace        Trace
}

// Middleware implements one step of the turn pipeline. Process must call
// next() exactly once to continue the chain, or return early (with or
// without an error) to short-circuit it.
type Middleware interface {
	Name() string
	Process(tc *Context, next func() error) error
}
