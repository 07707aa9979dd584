// Package persistence implements the durable side of a tab: atomic
// save/restore of its on-disk artifacts (world state, conversation log,
// rule table, timer table, authored system context, workflow settings)
// with full rollback on a failed restore.
package persistence

import (
	"github.com/Masterminds/semver/v3"

	"github.com/Valaery/worldengine/engineerr"
)

// FormatVersion is the gamestate format this build writes and the floor it
// accepts on load. Bundles written by an older, incompatible major version
// are rejected rather than silently misread.
const FormatVersion = "1.0.0"

var formatConstraint = semver.MustParse(FormatVersion)

// Bundle holds one tab's durable artifacts, each already serialized to its
// on-disk representation by the caller (worldstore, convlog, rules,
// timers own their own (de)serialization; persistence only moves bytes).
type Bundle struct {
	Version          string
	WorldState       []byte
	ConversationLog  []byte
	Rules            []byte
	Timers           []byte
	SystemContext    []byte
	WorkflowSettings []byte
}

const (
	fileVersion  = "version.json"
	fileWorld    = "world.json"
	fileLog      = "log.jsonl"
	fileRules    = "rules.json"
	fileTimers   = "timers.json"
	fileSystem   = "system_context.json"
	fileWorkflow = "workflow.json"
)

// checkVersion rejects a bundle written by an incompatible major version.
func checkVersion(raw string) error {
	if raw == "" {
		return nil
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return engineerr.New("persistence", "checkVersion", engineerr.PersistenceError, err).WithDetail("malformed version: " + raw)
	}
	if v.Major() != formatConstraint.Major() {
		return engineerr.New("persistence", "checkVersion", engineerr.PersistenceError, nil).
			WithDetail("incompatible gamestate version " + raw + ", expected major " + formatConstraint.String())
	}
	return nil
}
