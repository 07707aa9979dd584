package workflow

import (
	"fmt"
	"regexp"
)

var pascalCaseRe = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)

// ValidationResult holds errors and warnings from workflow validation.
type ValidationResult struct {
	Errors   []string // Blocking: invalid references, missing fields
	Warnings []string // Non-blocking: PascalCase violations, circular refs
}

// HasErrors returns true if there are blocking validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Validate checks a Spec for structural well-formedness: every state has a
// handler, every event target exists, and the entry state is defined.
func Validate(spec *Spec) *ValidationResult {
	r := &ValidationResult{}

	validateVersion(spec, r)
	if len(spec.States) == 0 {
		r.Errors = append(r.Errors, "workflow.states must be non-empty")
		return r
	}
	validateEntry(spec, r)
	validateStates(spec, r)
	validateCycles(spec, r)

	return r
}

// validateVersion checks rule 1: version must equal 1.
func validateVersion(spec *Spec, r *ValidationResult) {
	if spec.Version != 1 {
		r.Errors = append(r.Errors, fmt.Sprintf("workflow.version must be 1, got %d", spec.Version))
	}
}

// validateEntry checks that entry references a valid state with a handler.
func validateEntry(spec *Spec, r *ValidationResult) {
	entry, ok := spec.States[spec.Entry]
	if !ok {
		r.Errors = append(r.Errors, fmt.Sprintf(
			"workflow.entry %q does not reference a key in states", spec.Entry))
		return
	}
	if entry.Handler == "" {
		r.Errors = append(r.Errors, fmt.Sprintf(
			"workflow.states[%q].handler must be set", spec.Entry))
	}
}

// validateStates checks each state for a handler, valid transitions, and
// persistence hints.
func validateStates(spec *Spec, r *ValidationResult) {
	for name, state := range spec.States {
		if state.Handler == "" {
			r.Errors = append(r.Errors, fmt.Sprintf(
				"workflow.states[%q].handler must be set", name))
		}
		validateEvents(spec, name, state, r)
		validatePersistence(name, state, r)
	}
}

// validateEvents checks event targets exist and are PascalCase.
func validateEvents(spec *Spec, name string, state *State, r *ValidationResult) {
	for event, target := range state.OnEvent {
		if _, ok := spec.States[target]; !ok {
			r.Errors = append(r.Errors, fmt.Sprintf(
				"workflow.states[%q].on_event[%q] target %q does not exist in states",
				name, event, target))
		}
		if !pascalCaseRe.MatchString(event) {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"workflow.states[%q].on_event[%q]: event name should be PascalCase",
				name, event))
		}
	}
}

// validatePersistence checks the persistence hint is one of the known values.
func validatePersistence(name string, state *State, r *ValidationResult) {
	if state.Persistence != "" &&
		state.Persistence != PersistenceTransient &&
		state.Persistence != PersistencePersistent {
		r.Errors = append(r.Errors, fmt.Sprintf(
			"workflow.states[%q].persistence %q is not valid (must be \"transient\" or \"persistent\")",
			name, state.Persistence))
	}
}

// validateCycles checks rule 10: DFS cycle detection (warn only). A cycle
// is expected for NPCScheduling <-> NPCInference looping and is only
// reported as a warning, never an error.
func validateCycles(spec *Spec, r *ValidationResult) {
	for _, cycle := range detectCycles(spec) {
		r.Warnings = append(r.Warnings, fmt.Sprintf("workflow contains a cycle: %s", cycle))
	}
}

// detectCycles uses DFS to find cycles in the state graph.
func detectCycles(spec *Spec) []string {
	const (
		white = iota // unvisited
		gray         // in current DFS path
		black        // fully explored
	)

	color := make(map[string]int, len(spec.States))
	var cycles []string

	var dfs func(state string)
	dfs = func(state string) {
		color[state] = gray
		s := spec.States[state]
		if s == nil {
			color[state] = black
			return
		}
		for _, target := range s.OnEvent {
			switch color[target] {
			case gray:
				cycles = append(cycles, fmt.Sprintf("%s -> %s", state, target))
			case white:
				dfs(target)
			}
		}
		color[state] = black
	}

	for name := range spec.States {
		if color[name] == white {
			dfs(name)
		}
	}

	return cycles
}
