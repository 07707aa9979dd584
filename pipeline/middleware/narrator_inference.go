package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/Valaery/worldengine/engineerr"
	"github.com/Valaery/worldengine/gateway"
	"github.com/Valaery/worldengine/pipeline"
)

// NarratorInference implements the turn pipeline's sixth step: call the
// Inference Gateway with the assembled narrator context. Refusal
// detection, duplicate detection, and fallback-chain traversal all happen
// inside the gateway itself (post-processing included); this middleware's
// only added responsibility is the one-shot context-overflow recovery the
// gateway's propagation policy leaves to its caller.
type NarratorInference struct {
	Gateway      *gateway.Gateway
	Model        string
	UtilityModel string
	Fallbacks    []string
	Temperature  float32
	MaxTokens    int
}

func (m *NarratorInference) Name() string { return "narrator_inference" }

func (m *NarratorInference) Process(tc *pipeline.Context, next func() error) error {
	if tc.ShortCircuited {
		return next()
	}

	m.Gateway.ResetTurn()

	req := gateway.Request{
		Messages:    tc.NarratorMessages,
		Model:       m.Model,
		Fallbacks:   m.Fallbacks,
		Temperature: m.Temperature,
		MaxTokens:   m.MaxTokens,
		SpeakerKey:  "narrator",
	}

	started := time.Now()
	text, err := m.Gateway.Complete(context.Background(), req)
	if errors.Is(err, engineerr.ContextOverflow) {
		text, err = m.Gateway.CompleteWithSummarizedHistory(context.Background(), req, m.UtilityModel)
	}
	call := pipeline.LLMCall{Stage: "narrator", Model: m.Model, StartedAt: started, Duration: time.Since(started)}
	if err != nil {
		call.Error = err.Error()
		tc.Trace.call(call)
		return err
	}
	tc.Trace.call(call)

	tc.NarratorText = text
	return next()
}
