package middleware

import (
	"context"

	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/pipeline"
	"github.com/Valaery/worldengine/rules"
	"github.com/Valaery/worldengine/worldstore"
)

// RuleStage runs one rule-engine pass — pre or post, per model.Phase —
// scoped to the narrator, applies its change set immediately, and records
// its PromptMods/override onto the turn context. The same type serves
// both the fourth and eighth pipeline steps; only Phase differs.
type RuleStage struct {
	Engine     *rules.Engine
	Store      *worldstore.Store
	Phase      model.Phase
	Classifier rules.Classifier
}

func (m *RuleStage) Name() string {
	if m.Phase == model.PhasePost {
		return "post_rules"
	}
	return "pre_rules"
}

func (m *RuleStage) Process(tc *pipeline.Context, next func() error) error {
	if tc.ShortCircuited && m.Phase == model.PhasePre {
		return next()
	}

	textTarget := tc.Input.Text
	if m.Phase == model.PhasePost {
		textTarget = tc.NarratorText
	}

	res := m.Engine.Apply(context.Background(), m.Store, m.Phase, model.ScopeNarrator, textTarget, m.Classifier)
	if err := m.Store.ApplyChangeSet(res.ChangeSet); err != nil {
		return err
	}
	tc.Emitter.StateChanged(changedKeys(res.ChangeSet))

	if m.Phase == model.PhasePre {
		tc.PreRules = res
	} else {
		tc.PostRules = res
		if res.HasOverride {
			tc.NarratorText = res.Override
		}
	}
	for _, msg := range res.DisplayMessages {
		tc.Trace.event("display_message", msg)
	}
	return next()
}

// changedKeys collects the non-empty entity/variable keys a change set
// touched, for the state.changed event's affected-keys payload.
func changedKeys(cs model.ChangeSet) []string {
	var keys []string
	for _, item := range cs.Items {
		if item.ActorKey != "" {
			keys = append(keys, "actor:"+item.ActorKey)
		}
		if item.SettingKey != "" {
			keys = append(keys, "setting:"+item.SettingKey)
		}
		if item.ItemKey != "" {
			keys = append(keys, "item:"+item.ItemKey)
		}
		if item.Variable != "" {
			keys = append(keys, "variable:"+item.Variable)
		}
	}
	return keys
}
