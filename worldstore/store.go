// Package worldstore is the single owner of actor, setting, item, and
// variable records for one tab. It exposes atomic reads, a transactional
// change-set apply that fails closed on any missing referenced key, and a
// cheap cloneable snapshot for the pure rule evaluator.
package worldstore

import (
	"sync"

	"github.com/Valaery/worldengine/engineerr"
	"github.com/Valaery/worldengine/model"
)

// Store holds one tab's world state in memory, guarded by a single
// read-write mutex. All mutation funnels through ApplyChangeSet so the
// single-writer discipline the turn pipeline relies on is mechanical
// rather than convention.
type Store struct {
	mu sync.RWMutex

	actors    map[string]*model.Actor
	settings  map[string]*model.Setting
	items     map[string]*model.Item
	variables map[string]model.Variable // "global:<name>" or "<actorKey>:<name>" or "setting:<key>:<name>"
	clock     model.GameClock
	scene     int
	turn      int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		actors:    make(map[string]*model.Actor),
		settings:  make(map[string]*model.Setting),
		items:     make(map[string]*model.Item),
		variables: make(map[string]model.Variable),
	}
}

// GetActor returns a deep-copied Actor, or nil if absent.
func (s *Store) GetActor(key string) *model.Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[key]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

// GetSetting returns a deep-copied Setting, or nil if absent.
func (s *Store) GetSetting(key string) *model.Setting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[key]
	if !ok {
		return nil
	}
	cp := *v
	return &cp
}

// GetItem returns a deep-copied Item, or nil if absent.
func (s *Store) GetItem(key string) *model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	if !ok {
		return nil
	}
	cp := *v
	return &cp
}

// PutActor inserts or replaces an actor record. Used by authoring/load
// paths; rule-driven mutation goes through ApplyChangeSet instead.
func (s *Store) PutActor(a *model.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.actors[a.Key] = &cp
}

// PutSetting inserts or replaces a setting record.
func (s *Store) PutSetting(v *model.Setting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.settings[v.Key] = &cp
}

// PutItem inserts or replaces an item record.
func (s *Store) PutItem(v *model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.items[v.Key] = &cp
}

// ListActorsIn returns the keys of actors currently located at settingKey.
func (s *Store) ListActorsIn(settingKey string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for k, a := range s.actors {
		if a.CurrentSetting == settingKey {
			out = append(out, k)
		}
	}
	return out
}

// Scene returns the current scene number.
func (s *Store) Scene() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scene
}

// Turn returns the current turn number.
func (s *Store) Turn() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turn
}

// IncrementTurn advances the monotonic turn counter and returns the new value.
func (s *Store) IncrementTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turn++
	return s.turn
}

// SetScene sets the monotonic scene counter. Callers must only ever move it
// forward; the invariant is enforced by the rule engine's action executor,
// not here, since a direct load-restore path legitimately needs to set it
// to a persisted value.
func (s *Store) SetScene(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene = n
}

// Clock returns a copy of the game clock.
func (s *Store) Clock() model.GameClock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock
}

// SetClock replaces the game clock.
func (s *Store) SetClock(c model.GameClock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = c
}

// ApplyChangeSet applies a group of mutations transactionally: if any item
// references a missing actor/setting/item/variable key, the whole set is
// rejected and nothing is written (fail closed, no partial writes).
func (s *Store) ApplyChangeSet(cs model.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateChangeSet(cs); err != nil {
		return err
	}
	for _, item := range cs.Items {
		s.applyOne(item)
	}
	return nil
}

func (s *Store) validateChangeSet(cs model.ChangeSet) error {
	for _, item := range cs.Items {
		switch item.Kind {
		case model.ActionMoveActor:
			if _, ok := s.actors[item.ActorKey]; !ok {
				return missingKey("move_actor", item.ActorKey)
			}
			if item.SettingKey != "" {
				if _, ok := s.settings[item.SettingKey]; !ok {
					return missingKey("move_actor", item.SettingKey)
				}
			}
		case model.ActionGiveItem, model.ActionRemoveItem:
			if _, ok := s.actors[item.ActorKey]; !ok {
				return missingKey("item_transfer", item.ActorKey)
			}
			if _, ok := s.items[item.ItemKey]; !ok {
				return missingKey("item_transfer", item.ItemKey)
			}
		}
	}
	return nil
}

func missingKey(op, key string) error {
	return engineerr.New("worldstore", op, engineerr.RuleResolutionError, nil).WithDetail(key)
}

func (s *Store) applyOne(item model.ChangeItem) {
	switch item.Kind {
	case model.ActionSetVariable:
		s.variables[item.Variable] = item.Value
	case model.ActionModifyVariable:
		cur := s.variables[item.Variable]
		s.variables[item.Variable] = modify(cur, item.Value, item.ModifyOp)
	case model.ActionMoveActor:
		if a, ok := s.actors[item.ActorKey]; ok {
			a.CurrentSetting = item.SettingKey
		}
	case model.ActionGiveItem:
		s.giveItem(item.ActorKey, item.ItemKey, item.Quantity)
	case model.ActionRemoveItem:
		s.removeItem(item.ActorKey, item.ItemKey, item.Quantity)
	}
}

func modify(cur, delta model.Variable, op model.ModifyOp) model.Variable {
	base := cur.AsNumber()
	d := delta.AsNumber()
	var result float64
	switch op {
	case model.ModifySub:
		result = base - d
	case model.ModifyMul:
		result = base * d
	default: // model.ModifyAdd
		result = base + d
	}
	return model.Variable{Type: model.VarNumber, Number: result}
}

func (s *Store) giveItem(actorKey, itemKey string, qty int) {
	a, ok := s.actors[actorKey]
	if !ok {
		return
	}
	for i := range a.Inventory {
		if a.Inventory[i].Key == itemKey {
			a.Inventory[i].Quantity += qty
			return
		}
	}
	a.Inventory = append(a.Inventory, model.ItemRef{Key: itemKey, Quantity: qty})
}

func (s *Store) removeItem(actorKey, itemKey string, qty int) {
	a, ok := s.actors[actorKey]
	if !ok {
		return
	}
	out := a.Inventory[:0]
	for _, ref := range a.Inventory {
		if ref.Key == itemKey {
			ref.Quantity -= qty
			if ref.Quantity > 0 {
				out = append(out, ref)
			}
			continue
		}
		out = append(out, ref)
	}
	a.Inventory = out
}
