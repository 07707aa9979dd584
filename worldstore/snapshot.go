package worldstore

import "github.com/Valaery/worldengine/model"

// Snapshot is a cheap, cloneable, immutable view of world state suitable
// for passing to the pure rule evaluator and to variable substitution.
// It is a value copy of the maps at the moment Snapshot was called; later
// mutation of the Store does not affect an already-taken Snapshot.
type Snapshot struct {
	Actors    map[string]model.Actor
	Settings  map[string]model.Setting
	Items     map[string]model.Item
	Variables map[string]model.Variable
	Clock     model.GameClock
	Scene     int
	Turn      int
}

// Snapshot returns an immutable copy of the store suitable for rule
// evaluation and variable substitution.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Actors:    make(map[string]model.Actor, len(s.actors)),
		Settings:  make(map[string]model.Setting, len(s.settings)),
		Items:     make(map[string]model.Item, len(s.items)),
		Variables: make(map[string]model.Variable, len(s.variables)),
		Clock:     s.clock,
		Scene:     s.scene,
		Turn:      s.turn,
	}
	for k, v := range s.actors {
		snap.Actors[k] = *v
	}
	for k, v := range s.settings {
		snap.Settings[k] = *v
	}
	for k, v := range s.items {
		snap.Items[k] = *v
	}
	for k, v := range s.variables {
		snap.Variables[k] = v
	}
	return snap
}

// Variable looks up a variable by its fully-scoped key ("global:<name>",
// "<actorKey>:<name>", or "setting:<key>:<name>"), returning the type's
// zero value when absent per the missing-variable-compares-as-default rule.
func (snap Snapshot) Variable(key string) model.Variable {
	if v, ok := snap.Variables[key]; ok {
		return v
	}
	return model.Variable{}
}

// Restore replaces the store's entire contents with snap, used by the
// persistence load path to install a bundle wholesale rather than through
// ApplyChangeSet's incremental, referential-integrity-checked mutation.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.actors = make(map[string]*model.Actor, len(snap.Actors))
	for k, v := range snap.Actors {
		cp := v
		s.actors[k] = &cp
	}
	s.settings = make(map[string]*model.Setting, len(snap.Settings))
	for k, v := range snap.Settings {
		cp := v
		s.settings[k] = &cp
	}
	s.items = make(map[string]*model.Item, len(snap.Items))
	for k, v := range snap.Items {
		cp := v
		s.items[k] = &cp
	}
	s.variables = make(map[string]model.Variable, len(snap.Variables))
	for k, v := range snap.Variables {
		s.variables[k] = v
	}
	s.clock = snap.Clock
	s.scene = snap.Scene
	s.turn = snap.Turn
}
