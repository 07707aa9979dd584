package middleware

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Valaery/worldengine/convlog"
	"github.com/Valaery/worldengine/gateway"
	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/pipeline"
	"github.com/Valaery/worldengine/rules"
	"github.com/Valaery/worldengine/types"
	"github.com/Valaery/worldengine/worldstore"
)

const npcNoteSystemPrompt = "Write one short first-person observation about what just happened, under 100 tokens. No commentary, just the observation."

// NPCTurn implements the turn pipeline's tenth and eleventh steps: decide
// which NPCs act this turn, then run each one's own pre-rules, context
// assembly, inference, and post-rules. NPCs dispatch in parallel or
// sequentially per a per-actor mode variable, but log appends are always
// ordered deterministically by actor key regardless of completion order,
// so the same turn replays to the same log ordering under goroutine
// scheduling jitter.
type NPCTurn struct {
	Store        *worldstore.Store
	Log          *convlog.Log
	Engine       *rules.Engine
	Classifier   rules.Classifier
	Gateway      *gateway.Gateway
	Model        string
	UtilityModel string
	Fallbacks    []string
	Temperature  float32
	MaxTokens    int
}

func (m *NPCTurn) Name() string { return "npc_turn" }

type npcResult struct {
	record model.TurnRecord
	ok     bool
}

func (m *NPCTurn) Process(tc *pipeline.Context, next func() error) error {
	snap := m.Store.Snapshot()
	player := snap.Actors[tc.Input.PlayerKey]

	triggered := map[string]bool{}
	for _, a := range tc.PostRules.EffectActions {
		if a.ActorKey != "" {
			triggered[a.ActorKey] = true
		}
	}

	var eligible []string
	for key, actor := range snap.Actors {
		if key == tc.Input.PlayerKey {
			continue
		}
		if actor.CurrentSetting == player.CurrentSetting || triggered[key] || onSchedule(actor, snap.Clock.Virtual) {
			eligible = append(eligible, key)
		}
	}
	sort.Strings(eligible)
	if len(eligible) == 0 {
		tc.Trace.event("npc_scheduling", "none eligible")
		return next()
	}

	results := make(map[string]npcResult, len(eligible))
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	for _, key := range eligible {
		mode := snap.Variable(key + ":dispatch_mode").AsString()
		key := key
		if mode == "parallel" {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec, ok := m.runOne(tc, key)
				resultsMu.Lock()
				results[key] = npcResult{record: rec, ok: ok}
				resultsMu.Unlock()
			}()
			continue
		}
		rec, ok := m.runOne(tc, key)
		results[key] = npcResult{record: rec, ok: ok}
	}
	wg.Wait()

	for _, key := range eligible {
		res := results[key]
		if !res.ok {
			continue
		}
		appended := m.Log.Append(res.record)
		tc.NPCOutputs = append(tc.NPCOutputs, appended)
	}

	return next()
}

// runOne runs one NPC's pre-rules, context assembly, inference, and
// post-rules, returning its turn record without appending it to the log —
// the caller appends in deterministic key order once every dispatch (both
// parallel and sequential) has completed.
func (m *NPCTurn) runOne(tc *pipeline.Context, npcKey string) (model.TurnRecord, bool) {
	ctx := context.Background()

	preRes := m.Engine.Apply(ctx, m.Store, model.PhasePre, model.ScopeNPC, tc.Input.Text, m.Classifier)
	if err := m.Store.ApplyChangeSet(preRes.ChangeSet); err != nil {
		tc.Trace.event("npc_pre_rules_failed", npcKey+": "+err.Error())
		return model.TurnRecord{}, false
	}

	snap := m.Store.Snapshot()
	actor, ok := snap.Actors[npcKey]
	if !ok {
		return model.TurnRecord{}, false
	}

	messages := m.buildContext(tc, snap, actor, preRes)

	started := time.Now()
	text, err := m.Gateway.Complete(ctx, gateway.Request{
		Messages:    messages,
		Model:       m.Model,
		Fallbacks:   m.Fallbacks,
		Temperature: m.Temperature,
		MaxTokens:   m.MaxTokens,
		SpeakerKey:  npcKey,
	})
	call := pipeline.LLMCall{Stage: "npc:" + npcKey, Model: m.Model, StartedAt: started, Duration: time.Since(started)}
	if err != nil {
		call.Error = err.Error()
		tc.Trace.call(call)
		return model.TurnRecord{}, false
	}
	tc.Trace.call(call)

	postRes := m.Engine.Apply(ctx, m.Store, model.PhasePost, model.ScopeNPC, text, m.Classifier)
	if err := m.Store.ApplyChangeSet(postRes.ChangeSet); err != nil {
		tc.Trace.event("npc_post_rules_failed", npcKey+": "+err.Error())
		return model.TurnRecord{}, false
	}
	if postRes.HasOverride {
		text = postRes.Override
	}

	m.appendNote(ctx, npcKey, text)

	return model.TurnRecord{
		Role:       model.RoleNPC,
		Content:    text,
		Scene:      tc.Scene,
		Turn:       tc.Turn,
		SpeakerKey: npcKey,
		Location:   actor.CurrentSetting,
		Visibility: model.VisibilityPublicInLocation,
		RealTime:   time.Now(),
	}, true
}

func (m *NPCTurn) buildContext(tc *pipeline.Context, snap worldstore.Snapshot, actor model.Actor, preRes rules.Result) []types.Message {
	var system strings.Builder
	system.WriteString(strings.Join(actor.Personality, " "))
	if len(actor.Description) > 0 {
		system.WriteString("\n")
		system.WriteString(strings.Join(actor.Description, " "))
	}
	for _, mod := range preRes.PromptModsFirst {
		system.WriteString("\n")
		system.WriteString(mod)
	}
	if len(actor.Notes) > 0 {
		system.WriteString("\nRecent observations:\n")
		system.WriteString(strings.Join(actor.Notes, "\n"))
	}

	messages := []types.Message{{Role: "system", Content: system.String()}}
	for _, entry := range m.Log.VisibleTo(tc.Scene, actor.Key, actor.CurrentSetting) {
		messages = append(messages, types.Message{Role: narratorRole(entry.Role), Content: entry.Content})
	}
	for _, mod := range preRes.PromptModsLast {
		messages = append(messages, types.Message{Role: "system", Content: mod})
	}
	return messages
}

// appendNote generates a short first-person observation via a separate
// utility call and appends it to the actor's note log. Failures are
// non-fatal to the NPC's turn.
func (m *NPCTurn) appendNote(ctx context.Context, npcKey, narration string) {
	note, err := m.Gateway.Complete(ctx, gateway.Request{
		Messages: []types.Message{
			{Role: "system", Content: npcNoteSystemPrompt},
			{Role: "user", Content: narration},
		},
		Model:       m.UtilityModel,
		Temperature: 0.3,
		MaxTokens:   100,
	})
	if err != nil || strings.TrimSpace(note) == "" {
		return
	}

	actor := m.Store.GetActor(npcKey)
	if actor == nil {
		return
	}
	actor.AppendNote(note)
	m.Store.PutActor(actor)
}

// onSchedule reports whether actor's schedule places it somewhere at the
// given virtual time, regardless of its currently recorded setting.
func onSchedule(actor model.Actor, virtual time.Time) bool {
	minutes := virtual.Hour()*60 + virtual.Minute()
	for _, entry := range actor.Schedule {
		start, ok1 := parseHHMM(entry.Start)
		end, ok2 := parseHHMM(entry.End)
		if !ok1 || !ok2 {
			continue
		}
		if start <= end {
			if minutes >= start && minutes < end {
				return true
			}
			continue
		}
		if minutes >= start || minutes < end {
			return true
		}
	}
	return false
}

func parseHHMM(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return h*60 + mins, true
}
