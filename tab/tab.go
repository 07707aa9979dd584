// Package tab implements the engine's Core API: one Tab per independent
// playthrough, wiring the turn pipeline, world store, rule engine, timer
// set, and event bus into submit_input/subscribe/save/load/reset/cancel.
package tab

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Valaery/worldengine/convlog"
	"github.com/Valaery/worldengine/engineerr"
	"github.com/Valaery/worldengine/events"
	"github.com/Valaery/worldengine/gateway"
	"github.com/Valaery/worldengine/metrics/prometheus"
	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/persistence"
	"github.com/Valaery/worldengine/pipeline"
	"github.com/Valaery/worldengine/pipeline/middleware"
	"github.com/Valaery/worldengine/providers"
	"github.com/Valaery/worldengine/rules"
	"github.com/Valaery/worldengine/template"
	"github.com/Valaery/worldengine/timers"
	"github.com/Valaery/worldengine/variables"
	"github.com/Valaery/worldengine/worldstore"
)

// Config holds everything NewTab needs to assemble a tab's middleware
// chain and supporting systems. The caller owns the lifetime of every
// reference field; Tab does not close or release any of them.
type Config struct {
	PlayerKey string

	Registry             *providers.Registry
	DuplicateCheck       gateway.DuplicateChecker
	NarratorModel        string
	UtilityModel         string
	Fallbacks            []string
	Temperature          float32
	MaxTokens            int
	IntentEnabled        bool
	ValidationEnabled    bool
	MaxValidationRetries int

	Rules      []*model.Rule
	Timers     []*model.Timer
	Classifier rules.Classifier

	Renderer     *template.Renderer
	Vars         variables.Provider
	Lore         []middleware.LoreEntry
	SystemPrompt string

	Dir          string
	WorkflowJSON []byte

	Bus   *events.EventBus
	RunID string
}

// Tab is one independently-addressable playthrough: its own world store,
// conversation log, rule engine, timer set, and turn pipeline, all
// serialized through a single in-flight-turn slot.
type Tab struct {
	id        string
	playerKey string
	dir       string

	mu       sync.Mutex
	store    *worldstore.Store
	log      *convlog.Log
	engine   *rules.Engine
	timerSet *timers.Set
	gw       *gateway.Gateway
	pipe     *pipeline.Pipeline
	cancel   context.CancelFunc

	bus     *events.EventBus
	emitter *events.Emitter

	cfg            Config
	baseline       worldstore.Snapshot
	baselineTimers []*model.Timer
	systemContext  []byte
}

// NewTab creates a fresh tab: an empty world store, no conversation
// history, and the rule/timer tables from cfg.
func NewTab(id string, cfg Config) (*Tab, error) {
	if cfg.Registry == nil {
		return nil, engineerr.New("tab", "new", engineerr.ConfigError, nil).WithDetail("registry is required")
	}
	if cfg.Bus == nil {
		cfg.Bus = events.NewEventBus()
	}

	t := &Tab{
		id:            id,
		playerKey:     cfg.PlayerKey,
		dir:           cfg.Dir,
		store:         worldstore.New(),
		log:           convlog.New(),
		cfg:           cfg,
		bus:           cfg.Bus,
		systemContext: []byte(cfg.SystemPrompt),
	}
	t.engine = rules.NewEngine(cfg.Rules, nil)
	t.baselineTimers = cloneTimers(cfg.Timers)
	t.timerSet = timers.New(cloneTimers(cfg.Timers))
	t.gw = gateway.New(cfg.Registry, cfg.DuplicateCheck)

	t.wire(cfg.RunID)
	t.baseline = t.store.Snapshot()
	t.rebuildPipeline()
	return t, nil
}

// LoadTab creates a tab whose state is restored from the persisted
// bundle in dir (written by an earlier Save).
func LoadTab(id string, cfg Config) (*Tab, error) {
	t, err := NewTab(id, cfg)
	if err != nil {
		return nil, err
	}
	if err := t.Load(cfg.Dir); err != nil {
		return nil, err
	}
	return t, nil
}

// wire attaches the shared event bus/emitter to the tab's gateway.
func (t *Tab) wire(runID string) {
	t.emitter = events.NewEmitter(t.bus, runID, t.id)
	t.gw.SetEmitter(t.emitter)
}

// RegisterMetrics subscribes the Prometheus turn/rule/timer listener to
// bus. Call this once per event bus a host process owns, never once per
// tab — tabs sharing a bus would otherwise double-count every event, one
// increment per registered listener.
func RegisterMetrics(bus *events.EventBus) {
	bus.SubscribeAll(prometheus.NewMetricsListener().Listener())
}

// rebuildPipeline assembles the thirteen-step middleware chain over the
// tab's current store/log/engine/timer objects. Called at construction
// and again after Load/Reset replace the engine and timer set, since
// middleware hold direct pointers bound at construction rather than
// looking them up dynamically.
func (t *Tab) rebuildPipeline() {
	chain := []pipeline.Middleware{
		&middleware.Ingest{Store: t.store, Log: t.log},
		&middleware.IntentExtraction{Gateway: t.gw, Model: t.cfg.UtilityModel, Enabled: t.cfg.IntentEnabled},
		&middleware.PreValidation{Store: t.store, Renderer: t.cfg.Renderer, Enabled: t.cfg.ValidationEnabled},
		&middleware.RuleStage{Engine: t.engine, Store: t.store, Phase: model.PhasePre, Classifier: t.cfg.Classifier},
		&middleware.NarratorContext{
			Store:        t.store,
			Log:          t.log,
			Vars:         t.cfg.Vars,
			Renderer:     t.cfg.Renderer,
			Lore:         t.cfg.Lore,
			SystemPrompt: t.cfg.SystemPrompt,
		},
		&middleware.NarratorInference{
			Gateway:      t.gw,
			Model:        t.cfg.NarratorModel,
			UtilityModel: t.cfg.UtilityModel,
			Fallbacks:    t.cfg.Fallbacks,
			Temperature:  t.cfg.Temperature,
			MaxTokens:    t.cfg.MaxTokens,
		},
		&middleware.PostValidation{
			Store:       t.store,
			Gateway:     t.gw,
			Model:       t.cfg.NarratorModel,
			Fallbacks:   t.cfg.Fallbacks,
			Temperature: t.cfg.Temperature,
			MaxTokens:   t.cfg.MaxTokens,
			MaxRetries:  t.cfg.MaxValidationRetries,
			Enabled:     t.cfg.ValidationEnabled,
		},
		&middleware.RuleStage{Engine: t.engine, Store: t.store, Phase: model.PhasePost, Classifier: t.cfg.Classifier},
		&middleware.NarratorAppend{Store: t.store, Log: t.log},
		&middleware.NPCTurn{
			Store:        t.store,
			Log:          t.log,
			Engine:       t.engine,
			Classifier:   t.cfg.Classifier,
			Gateway:      t.gw,
			Model:        t.cfg.NarratorModel,
			UtilityModel: t.cfg.UtilityModel,
			Fallbacks:    t.cfg.Fallbacks,
			Temperature:  t.cfg.Temperature,
			MaxTokens:    t.cfg.MaxTokens,
		},
		&middleware.Persist{
			Store:        t.store,
			Log:          t.log,
			Engine:       t.engine,
			Timers:       t.timerSet,
			Dir:          t.dir,
			SystemText:   t.systemContext,
			WorkflowJSON: t.cfg.WorkflowJSON,
		},
		&middleware.TimerTick{Store: t.store, Timers: t.timerSet, Engine: t.engine, Classifier: t.cfg.Classifier},
	}

	p := pipeline.NewPipeline(chain...)
	p.SetEmitter(t.emitter)
	t.pipe = p
}

// Future is the value submit_input returns: a handle on a turn that may
// still be executing.
type Future struct {
	done   chan struct{}
	result *pipeline.Result
	err    error
}

// Wait blocks until the turn finishes (success, error, or cancellation)
// or ctx is done first.
func (f *Future) Wait(ctx context.Context) (*pipeline.Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SubmitInput starts a new turn for text and returns immediately with a
// Future resolving when the turn completes. Only one turn may be in
// flight per tab at a time.
func (t *Tab) SubmitInput(ctx context.Context, text string) (*Future, error) {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return nil, engineerr.New("tab", "submit_input", engineerr.ValidationError, nil).WithDetail("a turn is already in flight")
	}
	turnCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	pipe := t.pipe
	playerKey := t.playerKey
	t.mu.Unlock()

	future := &Future{done: make(chan struct{})}
	go func() {
		defer close(future.done)
		defer func() {
			t.mu.Lock()
			t.cancel = nil
			t.mu.Unlock()
		}()
		future.result, future.err = pipe.ExecuteTurn(turnCtx, t.id, pipeline.Input{PlayerKey: playerKey, Text: text})
	}()
	return future, nil
}

// Cancel requests the in-flight turn, if any, stop at its next safe
// point. It is a no-op if no turn is running.
func (t *Tab) Cancel() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// subscription guards a single Subscribe channel so cancel() and the
// bus's dispatch goroutine never race on send-after-close.
type subscription struct {
	mu     sync.Mutex
	ch     chan *events.Event
	closed bool
}

// Subscribe returns a channel of this tab's events and a cancel function
// that stops delivery and closes the channel. The underlying EventBus has
// no unsubscribe primitive, so the forwarding listener stays registered
// for the bus's lifetime; after cancel it is a cheap no-op on every
// publish rather than a removed listener.
func (t *Tab) Subscribe() (<-chan *events.Event, func()) {
	sub := &subscription{ch: make(chan *events.Event, 32)}
	t.bus.SubscribeAll(func(ev *events.Event) {
		if ev.TabID != t.id {
			return
		}
		sub.mu.Lock()
		defer sub.mu.Unlock()
		if sub.closed {
			return
		}
		select {
		case sub.ch <- ev:
		default: // slow consumer: drop rather than block the bus dispatch goroutine
		}
	})
	cancel := func() {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		if !sub.closed {
			sub.closed = true
			close(sub.ch)
		}
	}
	return sub.ch, cancel
}

// ServeWS upgrades an HTTP request to a websocket connection and streams
// this tab's events to it, for an out-of-process host UI that can't hold
// the in-process channel Subscribe returns directly.
func (t *Tab) ServeWS(w http.ResponseWriter, r *http.Request) error {
	ch, cancel := t.Subscribe()
	return events.ServeWS(w, r, ch, cancel)
}

// ruleTable is the on-disk shape of the rules artifact: the authored rule
// list plus the once-rule fingerprints accumulated so far.
type ruleTable struct {
	Rules             []*model.Rule   `json:"rules"`
	FiredFingerprints map[string]bool `json:"fired_fingerprints"`
}

// Save writes the tab's current state to its configured directory,
// exactly as the Persist middleware does at the end of a turn — used for
// an explicit out-of-band save.
func (t *Tab) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.persistLocked(t.dir)
}

func (t *Tab) persistLocked(dir string) error {
	world, err := json.Marshal(t.store.Snapshot())
	if err != nil {
		return engineerr.New("tab", "save", engineerr.PersistenceError, err)
	}
	logLines, err := t.log.MarshalJSONL()
	if err != nil {
		return err
	}
	rulesJSON, err := json.Marshal(ruleTable{Rules: t.engine.Rules(), FiredFingerprints: t.engine.FiredFingerprints()})
	if err != nil {
		return engineerr.New("tab", "save", engineerr.PersistenceError, err)
	}
	timersJSON, err := json.Marshal(t.timerSet.All())
	if err != nil {
		return engineerr.New("tab", "save", engineerr.PersistenceError, err)
	}

	bundle := persistence.Bundle{
		WorldState:       world,
		ConversationLog:  logLines,
		Rules:            rulesJSON,
		Timers:           timersJSON,
		SystemContext:    t.systemContext,
		WorkflowSettings: t.cfg.WorkflowJSON,
	}
	stamp := time.Now().UTC().Format("20060102T150405.000000000")
	return persistence.Save(dir, bundle, stamp)
}

// Load replaces the tab's entire state with the bundle persisted at dir,
// then re-baselines Reset against the freshly loaded state.
func (t *Tab) Load(dir string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return engineerr.New("tab", "load", engineerr.ValidationError, nil).WithDetail("a turn is in flight")
	}

	bundle, err := persistence.Read(dir)
	if err != nil {
		return err
	}

	var snap worldstore.Snapshot
	if len(bundle.WorldState) > 0 {
		if err := json.Unmarshal(bundle.WorldState, &snap); err != nil {
			return engineerr.New("tab", "load", engineerr.PersistenceError, err)
		}
	}
	t.store.Restore(snap)

	log, err := convlog.UnmarshalJSONL(bundle.ConversationLog)
	if err != nil {
		return err
	}
	t.log = log

	var rt ruleTable
	if len(bundle.Rules) > 0 {
		if err := json.Unmarshal(bundle.Rules, &rt); err != nil {
			return engineerr.New("tab", "load", engineerr.PersistenceError, err)
		}
	}
	if rt.Rules == nil {
		rt.Rules = t.cfg.Rules
	}
	t.engine = rules.NewEngine(rt.Rules, rt.FiredFingerprints)

	var loadedTimers []*model.Timer
	if len(bundle.Timers) > 0 {
		if err := json.Unmarshal(bundle.Timers, &loadedTimers); err != nil {
			return engineerr.New("tab", "load", engineerr.PersistenceError, err)
		}
	}
	t.timerSet = timers.New(loadedTimers)
	t.baselineTimers = cloneTimers(loadedTimers)

	if len(bundle.SystemContext) > 0 {
		t.systemContext = bundle.SystemContext
	}
	if len(bundle.WorkflowSettings) > 0 {
		t.cfg.WorkflowJSON = bundle.WorkflowSettings
	}

	t.dir = dir
	t.baseline = t.store.Snapshot()
	t.rebuildPipeline()
	return nil
}

// Reset restores the tab to its baseline world state (the state at
// construction, or at the last Load) while preserving the current value
// of every variable whose name carries the reserved "*" prefix, resets
// the rule engine's once-fired fingerprints, and restores the timer set
// to its baseline registrations.
func (t *Tab) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return engineerr.New("tab", "reset", engineerr.ValidationError, nil).WithDetail("a turn is in flight")
	}

	current := t.store.Snapshot()
	restored := cloneSnapshot(t.baseline)
	for key, v := range current.Variables {
		if model.IsReserved(variableName(key)) {
			restored.Variables[key] = v
		}
	}
	t.store.Restore(restored)

	t.engine = rules.NewEngine(t.engine.Rules(), map[string]bool{})
	t.timerSet = timers.New(cloneTimers(t.baselineTimers))
	t.rebuildPipeline()
	return nil
}

// variableName strips the scope prefix ("global:", "<actorKey>:", or
// "setting:<key>:") from a world-store variable key, leaving the bare
// name the reserved-prefix rule is checked against.
func variableName(key string) string {
	if i := strings.LastIndex(key, ":"); i >= 0 {
		return key[i+1:]
	}
	return key
}

func cloneTimers(in []*model.Timer) []*model.Timer {
	out := make([]*model.Timer, len(in))
	for i, tm := range in {
		cp := *tm
		out[i] = &cp
	}
	return out
}

func cloneSnapshot(snap worldstore.Snapshot) worldstore.Snapshot {
	out := worldstore.Snapshot{
		Actors:    make(map[string]model.Actor, len(snap.Actors)),
		Settings:  make(map[string]model.Setting, len(snap.Settings)),
		Items:     make(map[string]model.Item, len(snap.Items)),
		Variables: make(map[string]model.Variable, len(snap.Variables)),
		Clock:     snap.Clock,
		Scene:     snap.Scene,
		Turn:      snap.Turn,
	}
	for k, v := range snap.Actors {
		out.Actors[k] = v
	}
	for k, v := range snap.Settings {
		out.Settings[k] = v
	}
	for k, v := range snap.Items {
		out.Items[k] = v
	}
	for k, v := range snap.Variables {
		out.Variables[k] = v
	}
	return out
}
