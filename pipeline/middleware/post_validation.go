package middleware

import (
	"context"
	"time"

	"github.com/Valaery/worldengine/gateway"
	"github.com/Valaery/worldengine/pipeline"
	"github.com/Valaery/worldengine/types"
	"github.com/Valaery/worldengine/validators"
	"github.com/Valaery/worldengine/worldstore"
)

const constraintAddendum = "Do not mention items, abilities, or characters that are not present. Rewrite your previous response honoring this constraint."

// PostValidation implements the turn pipeline's seventh step: scan the
// narrator's generated text for mentions of items the player doesn't have,
// abilities the player's class lacks, or NPCs absent from the current
// setting. A violation re-invokes the narrator with an added constraint
// message, bounded by MaxRetries per turn; once the budget is spent the
// output is accepted as-is.
type PostValidation struct {
	Store       *worldstore.Store
	Gateway     *gateway.Gateway
	Model       string
	Fallbacks   []string
	Temperature float32
	MaxTokens   int
	MaxRetries  int
	Enabled     bool
}

func (m *PostValidation) Name() string { return "post_validation" }

func (m *PostValidation) Process(tc *pipeline.Context, next func() error) error {
	if !m.Enabled || tc.ShortCircuited {
		return next()
	}

	for {
		snap := m.Store.Snapshot()
		player := snap.Actors[tc.Input.PlayerKey]

		var forbiddenItems, forbiddenAbilities, forbiddenNPCs []string
		for key, item := range snap.Items {
			if !player.HasItem(key, 1) {
				forbiddenItems = append(forbiddenItems, item.Name)
			}
		}
		for key, actor := range snap.Actors {
			if key == tc.Input.PlayerKey {
				continue
			}
			if actor.CurrentSetting != player.CurrentSetting {
				forbiddenNPCs = append(forbiddenNPCs, actor.Name)
			}
			for _, ability := range actor.Abilities {
				if !hasAbility(player.Abilities, ability) {
					forbiddenAbilities = append(forbiddenAbilities, ability)
				}
			}
		}

		result := validators.PostValidateForbiddenTokens(tc.NarratorText, forbiddenItems, forbiddenAbilities, forbiddenNPCs)
		if result.OK {
			tc.Trace.event("post_validation_ok", "")
			return next()
		}

		tc.Trace.event("post_validation_violation", joinTokens(result.Forbidden))
		if tc.PostRetries >= m.MaxRetries {
			tc.Trace.event("post_validation_budget_spent", "")
			return next()
		}
		tc.PostRetries++

		if err := m.regenerate(tc); err != nil {
			return err
		}
	}
}

func (m *PostValidation) regenerate(tc *pipeline.Context) error {
	messages := append(append([]types.Message{}, tc.NarratorMessages...), types.Message{
		Role:    "system",
		Content: constraintAddendum,
	})

	started := time.Now()
	text, err := m.Gateway.Complete(context.Background(), gateway.Request{
		Messages:    messages,
		Model:       m.Model,
		Fallbacks:   m.Fallbacks,
		Temperature: m.Temperature,
		MaxTokens:   m.MaxTokens,
		SpeakerKey:  "narrator",
	})
	call := pipeline.LLMCall{Stage: "narrator_retry", Model: m.Model, StartedAt: started, Duration: time.Since(started)}
	if err != nil {
		call.Error = err.Error()
		tc.Trace.call(call)
		return err
	}
	tc.Trace.call(call)
	tc.NarratorText = text
	return nil
}

func hasAbility(owned []string, ability string) bool {
	for _, a := range owned {
		if a == ability {
			return true
		}
	}
	return false
}

func joinTokens(tokens []string) string {
	out := ""
	for i, t := range tokens {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}
