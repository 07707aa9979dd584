package middleware

import (
	"strings"
	"time"

	"github.com/Valaery/worldengine/convlog"
	"github.com/Valaery/worldengine/engineerr"
	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/pipeline"
	"github.com/Valaery/worldengine/worldstore"
)

// Ingest implements the turn pipeline's first step: validate the player's
// input, advance the turn counter, and append the player's entry to the
// conversation log before any inference runs.
type Ingest struct {
	Store *worldstore.Store
	Log   *convlog.Log
}

func (m *Ingest) Name() string { return "ingest" }

func (m *Ingest) Process(tc *pipeline.Context, next func() error) error {
	text := strings.TrimSpace(tc.Input.Text)
	if text == "" {
		return engineerr.New("pipeline", "ingest", engineerr.ValidationError, nil).WithDetail("empty input")
	}

	tc.Turn = m.Store.IncrementTurn()
	tc.Scene = m.Store.Scene()

	location := ""
	if a := m.Store.GetActor(tc.Input.PlayerKey); a != nil {
		location = a.CurrentSetting
	}

	m.Log.Append(model.TurnRecord{
		Role:       model.RolePlayer,
		Content:    text,
		Scene:      tc.Scene,
		Turn:       tc.Turn,
		SpeakerKey: tc.Input.PlayerKey,
		Location:   location,
		Visibility: model.VisibilityPublicInLocation,
		RealTime:   time.Now(),
	})
	tc.Input.Text = text
	tc.Trace.event("ingested", text)

	tc.Emitter.TurnStarted(tc.Turn, tc.Scene, tc.Input.PlayerKey)
	tc.Emitter.MessageAppended(string(model.RolePlayer), tc.Input.PlayerKey, text, string(model.VisibilityPublicInLocation))

	return next()
}
