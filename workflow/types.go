// Package workflow defines the turn pipeline's state machine: the thirteen
// states a tab moves through for one player turn, and the transitions
// between them.
//
// A workflow is an event-driven state machine. Each state names a handler
// (the pipeline step that runs while the machine is in that state) and
// defines transitions via named events.
package workflow

import "time"

// Spec is the top-level workflow definition for a tab's turn pipeline.
type Spec struct {
	Version int               `json:"version"`
	Entry   string            `json:"entry"`
	States  map[string]*State `json:"states"`
}

// State defines a single state in the workflow state machine.
type State struct {
	Handler     string            `json:"handler"`
	Description string            `json:"description,omitempty"`
	OnEvent     map[string]string `json:"on_event,omitempty"`
	Persistence Persistence       `json:"persistence,omitempty"`
}

// Persistence is the storage hint for a workflow state: whether entering
// it should trigger a durable save of the tab's state.
type Persistence string

// Persistence values.
const (
	PersistenceTransient  Persistence = "transient"
	PersistencePersistent Persistence = "persistent"
)

// Context holds the runtime state of a workflow execution.
type Context struct {
	CurrentState string            `json:"current_state"`
	History      []StateTransition `json:"history"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// StateTransition records a single state transition.
type StateTransition struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}
