package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Valaery/worldengine/gateway"
	"github.com/Valaery/worldengine/pipeline"
	"github.com/Valaery/worldengine/types"
	"github.com/Valaery/worldengine/validators"
)

// intentKinds is the fixed enum spec.md names; any model output outside
// this set (or unparseable) maps to "other" rather than failing the turn.
var intentKinds = map[string]bool{
	"move": true, "attack": true, "talk": true,
	"use_item": true, "examine": true, "other": true,
}

const intentSystemPrompt = `Classify the player's input into exactly one JSON object:
{"kind":"move|attack|talk|use_item|examine|other","target":"<optional>","method":"<optional>"}
Respond with JSON only, no commentary.`

// IntentExtraction implements the turn pipeline's optional second step: a
// cheap, low-temperature utility call that classifies player input into a
// structured Intent for the pre-validation step to check against world
// state.
type IntentExtraction struct {
	Gateway *gateway.Gateway
	Model   string
	Enabled bool
}

func (m *IntentExtraction) Name() string { return "intent_extraction" }

func (m *IntentExtraction) Process(tc *pipeline.Context, next func() error) error {
	if !m.Enabled || m.Model == "" {
		tc.Intent = validators.Intent{Kind: "other"}
		return next()
	}

	started := time.Now()
	text, err := m.Gateway.Complete(context.Background(), gateway.Request{
		Messages: []types.Message{
			{Role: "system", Content: intentSystemPrompt},
			{Role: "user", Content: tc.Input.Text},
		},
		Model:       m.Model,
		Temperature: 0.1,
		MaxTokens:   50,
	})
	call := pipeline.LLMCall{Stage: "intent", Model: m.Model, StartedAt: started, Duration: time.Since(started)}
	if err != nil {
		call.Error = err.Error()
		tc.Trace.call(call)
		tc.Intent = validators.Intent{Kind: "other"}
		return next()
	}
	tc.Trace.call(call)
	tc.Intent = parseIntent(text)
	return next()
}

func parseIntent(raw string) validators.Intent {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return validators.Intent{Kind: "other"}
	}

	var parsed struct {
		Kind   string `json:"kind"`
		Target string `json:"target"`
		Method string `json:"method"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return validators.Intent{Kind: "other"}
	}

	kind := strings.ToLower(strings.TrimSpace(parsed.Kind))
	if !intentKinds[kind] {
		kind = "other"
	}
	return validators.Intent{Kind: kind, Target: parsed.Target, Method: parsed.Method}
}
