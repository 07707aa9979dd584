package middleware

import (
	"time"

	"github.com/Valaery/worldengine/convlog"
	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/pipeline"
	"github.com/Valaery/worldengine/worldstore"
)

// NarratorAppend implements the turn pipeline's ninth step: commit the
// final narrator text (after post-rules may have overridden it, and after
// post-validation's retry budget is spent) to the conversation log as a
// public, in-location turn record.
type NarratorAppend struct {
	Store *worldstore.Store
	Log   *convlog.Log
}

func (m *NarratorAppend) Name() string { return "narrator_append" }

func (m *NarratorAppend) Process(tc *pipeline.Context, next func() error) error {
	location := ""
	if a := m.Store.GetActor(tc.Input.PlayerKey); a != nil {
		location = a.CurrentSetting
	}
	m.Log.Append(model.TurnRecord{
		Role:       model.RoleNarrator,
		Content:    tc.NarratorText,
		Scene:      tc.Scene,
		Turn:       tc.Turn,
		SpeakerKey: "narrator",
		Location:   location,
		Visibility: model.VisibilityPublicInLocation,
		RealTime:   time.Now(),
	})
	tc.Trace.event("narrator_appended", "")
	tc.Emitter.MessageAppended(string(model.RoleNarrator), "narrator", tc.NarratorText, string(model.VisibilityPublicInLocation))
	return next()
}
