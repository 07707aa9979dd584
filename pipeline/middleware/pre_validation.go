package middleware

import (
	"github.com/Valaery/worldengine/pipeline"
	"github.com/Valaery/worldengine/template"
	"github.com/Valaery/worldengine/validators"
	"github.com/Valaery/worldengine/worldstore"
)

// failureTemplates renders a templated rejection narration per
// validators.InvalidReason, substituted against the intent's target.
var failureTemplates = map[validators.InvalidReason]string{
	validators.ReasonNoItem:    "You don't have {target}.",
	validators.ReasonNoAbility: "You don't know how to do that.",
	validators.ReasonNoTarget:  "There's no {target} here.",
}

const defaultRejection = "You can't do that."

// PreValidation implements the turn pipeline's optional third step:
// reject impossible actions (missing item, unknown ability, absent
// target) before any inference call is made. A rejection sets
// tc.ShortCircuited so downstream narrator inference is skipped, but the
// chain still runs to completion (post-rules, NPC scheduling, and
// persistence all still apply to the rejection turn).
type PreValidation struct {
	Store    *worldstore.Store
	Renderer *template.Renderer
	Enabled  bool
}

func (m *PreValidation) Name() string { return "pre_validation" }

func (m *PreValidation) Process(tc *pipeline.Context, next func() error) error {
	if !m.Enabled {
		return next()
	}

	snap := m.Store.Snapshot()
	player := snap.Actors[tc.Input.PlayerKey]

	hasItem := func(key string) bool { return player.HasItem(key, 1) }
	hasAbility := func(ability string) bool {
		for _, a := range player.Abilities {
			if a == ability {
				return true
			}
		}
		return false
	}
	targetPresent := func(key string) bool {
		if _, ok := snap.Actors[key]; ok {
			return true
		}
		for _, ref := range player.Inventory {
			if ref.Key == key {
				return true
			}
		}
		return false
	}

	reason, ok := validators.PreValidate(tc.Intent, hasItem, hasAbility, targetPresent)
	if ok {
		return next()
	}

	tmpl, known := failureTemplates[reason]
	if !known {
		tmpl = defaultRejection
	}
	text, err := m.Renderer.Render(tmpl, map[string]string{"target": tc.Intent.Target})
	if err != nil {
		text = defaultRejection
	}

	tc.ShortCircuited = true
	tc.NarratorText = text
	tc.Trace.event("pre_validation_rejected", string(reason))
	return next()
}
