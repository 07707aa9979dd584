package middleware

import (
	"encoding/json"
	"time"

	"github.com/Valaery/worldengine/convlog"
	"github.com/Valaery/worldengine/persistence"
	"github.com/Valaery/worldengine/pipeline"
	"github.com/Valaery/worldengine/rules"
	"github.com/Valaery/worldengine/timers"
	"github.com/Valaery/worldengine/worldstore"
)

// Persist implements the turn pipeline's twelfth step: serialize the
// world state, conversation log, rule table, and timer table, and write
// them atomically to the tab's directory. Input is implicitly re-enabled
// once ExecuteTurn returns — the pipeline's concurrency harness is what
// disabled it (a tab has at most one turn in flight at a time via its own
// single-slot semaphore), so there is no separate flag to clear here.
type Persist struct {
	Store      *worldstore.Store
	Log        *convlog.Log
	Engine     *rules.Engine
	Timers     *timers.Set
	Dir        string
	SystemText []byte
	WorkflowJSON []byte
}

func (m *Persist) Name() string { return "persist" }

func (m *Persist) Process(tc *pipeline.Context, next func() error) error {
	world, err := json.Marshal(m.Store.Snapshot())
	if err != nil {
		return err
	}

	logLines, err := m.Log.MarshalJSONL()
	if err != nil {
		return err
	}

	ruleTable, err := json.Marshal(struct {
		Rules             any            `json:"rules"`
		FiredFingerprints map[string]bool `json:"fired_fingerprints"`
	}{Rules: m.Engine.Rules(), FiredFingerprints: m.Engine.FiredFingerprints()})
	if err != nil {
		return err
	}

	timerTable, err := json.Marshal(m.Timers.All())
	if err != nil {
		return err
	}

	bundle := persistence.Bundle{
		WorldState:       world,
		ConversationLog:  logLines,
		Rules:            ruleTable,
		Timers:           timerTable,
		SystemContext:    m.SystemText,
		WorkflowSettings: m.WorkflowJSON,
	}

	stamp := time.Now().UTC().Format("20060102T150405.000000000")
	if err := persistence.Save(m.Dir, bundle, stamp); err != nil {
		return err
	}

	tc.Trace.event("persisted", m.Dir)
	return next()
}
