package rules

import (
	"context"
	"sort"
	"sync"

	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/worldstore"
)

// Engine holds the rule table for one tab, sorted by priority descending
// then insertion order, and tracks per-rule "fired once" fingerprints
// across the tab's persistent lifetime.
type Engine struct {
	mu    sync.Mutex
	rules []*model.Rule
	fired map[string]bool // ruleID -> true once a "once" rule has fired
}

// NewEngine creates an Engine over the given rule table, preserving file
// order as the tie-break for equal priority.
func NewEngine(rules []*model.Rule, firedFingerprints map[string]bool) *Engine {
	e := &Engine{rules: append([]*model.Rule(nil), rules...), fired: firedFingerprints}
	if e.fired == nil {
		e.fired = make(map[string]bool)
	}
	sort.SliceStable(e.rules, func(i, j int) bool {
		return e.rules[i].Priority > e.rules[j].Priority
	})
	return e
}

// FiredFingerprints returns the current once-rule fingerprint set, for
// persistence.
func (e *Engine) FiredFingerprints() map[string]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]bool, len(e.fired))
	for k, v := range e.fired {
		out[k] = v
	}
	return out
}

// Rules returns the current rule table, for persistence.
func (e *Engine) Rules() []*model.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*model.Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Result is what one Apply pass returns to the turn pipeline.
type Result struct {
	PromptModsFirst []string
	PromptModsLast  []string
	DisplayMessages []string
	Override        string
	HasOverride     bool
	ChangeSet       model.ChangeSet
	TriggeredRules  []string       // rule IDs triggered via trigger_rule_by_id, for timer/cross-rule dispatch
	TimerActions    []model.Action // start_timer/cancel_timer actions, applied by the timer subsystem
	SceneActions    []model.Action // set_scene/end_scene actions, applied by the pipeline
	EffectActions   []model.Action // play_effect actions, passed through to the opaque external sink
}

// Apply runs one phase of rule evaluation and action execution against
// store, returning the accumulated prompt modifications, display messages,
// and change set. It does not itself call store.ApplyChangeSet — the
// caller applies the returned change set so the pipeline retains control
// over exactly when world-store mutation happens relative to its own
// safe points.
func (e *Engine) Apply(ctx context.Context, store *worldstore.Store, phase model.Phase, scope model.Scope, textTarget string, classifier Classifier) Result {
	e.mu.Lock()
	candidates := e.eligibleLocked(phase, scope)
	e.mu.Unlock()

	snap := store.Snapshot()
	ec := EvalContext{Snapshot: snap, TextTarget: textTarget, Classifier: classifier}

	var res Result
	for _, rule := range candidates {
		if !EvaluateTree(ctx, rule.Condition, ec) {
			continue
		}
		e.markFired(rule)
		e.executeActions(rule, snap, &res)
	}
	return res
}

func (e *Engine) eligibleLocked(phase model.Phase, scope model.Scope) []*model.Rule {
	var out []*model.Rule
	for _, r := range e.rules {
		if !r.Enabled {
			continue
		}
		if !scopeMatches(r.Scope, scope) {
			continue
		}
		if !frequencyEligible(r, phase, e.fired) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func scopeMatches(ruleScope, wanted model.Scope) bool {
	return ruleScope == model.ScopeBoth || ruleScope == wanted
}

func frequencyEligible(r *model.Rule, phase model.Phase, fired map[string]bool) bool {
	switch r.Frequency {
	case model.FrequencyOnce:
		return !fired[r.ID]
	case model.FrequencyTimer:
		return phase == model.PhaseTimer
	default: // FrequencyPerTurn
		return phase != model.PhaseTimer
	}
}

func (e *Engine) markFired(r *model.Rule) {
	if r.Frequency != model.FrequencyOnce {
		return
	}
	e.mu.Lock()
	e.fired[r.ID] = true
	e.mu.Unlock()
}

func (e *Engine) executeActions(rule *model.Rule, snap worldstore.Snapshot, res *Result) {
	derived := worldstore.DerivedBindings{}
	for _, action := range rule.Actions {
		e.executeOne(action, snap, derived, res)
	}
}

func (e *Engine) executeOne(action model.Action, snap worldstore.Snapshot, derived worldstore.DerivedBindings, res *Result) {
	switch action.Kind {
	case model.ActionSetVariable:
		res.ChangeSet.Items = append(res.ChangeSet.Items, model.ChangeItem{
			Kind: action.Kind, Variable: action.VariableName, Value: action.Value,
		})
	case model.ActionModifyVariable:
		res.ChangeSet.Items = append(res.ChangeSet.Items, model.ChangeItem{
			Kind: action.Kind, Variable: action.VariableName, Value: action.Value, ModifyOp: action.ModifyOp,
		})
	case model.ActionMoveActor:
		res.ChangeSet.Items = append(res.ChangeSet.Items, model.ChangeItem{
			Kind: action.Kind, ActorKey: action.ActorKey, SettingKey: action.SettingKey,
		})
	case model.ActionGiveItem, model.ActionRemoveItem:
		res.ChangeSet.Items = append(res.ChangeSet.Items, model.ChangeItem{
			Kind: action.Kind, ActorKey: action.ActorKey, ItemKey: action.ItemKey, Quantity: action.Quantity,
		})
	case model.ActionAppendSystemMsg:
		text := snap.Substitute(action.Text, derived)
		if action.Position == model.ModLast {
			res.PromptModsLast = append(res.PromptModsLast, text)
		} else {
			res.PromptModsFirst = append(res.PromptModsFirst, text)
		}
	case model.ActionOverrideNext:
		res.Override = snap.Substitute(action.Message, derived)
		res.HasOverride = true
	case model.ActionDisplayMessage:
		res.DisplayMessages = append(res.DisplayMessages, snap.Substitute(action.Message, derived))
	case model.ActionTriggerRuleByID:
		res.TriggeredRules = append(res.TriggeredRules, action.RuleID)
	case model.ActionStartTimer, model.ActionCancelTimer:
		res.TimerActions = append(res.TimerActions, action)
	case model.ActionSetScene, model.ActionEndScene:
		res.SceneActions = append(res.SceneActions, action)
	case model.ActionPlayEffect:
		res.EffectActions = append(res.EffectActions, action)
	}
}
