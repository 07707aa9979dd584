package tab

import (
	"context"
	"time"

	"github.com/Valaery/worldengine/engineerr"
	"github.com/Valaery/worldengine/statestore"
)

// Registry tracks which tabs a host process knows about — their on-disk
// directory and last-active time — independent of whether any of them is
// currently loaded in memory. It is backed by statestore.Store so a
// single-process host can use an in-memory index while a multi-process
// deployment points every instance at the same Redis database.
type Registry struct {
	store statestore.Store
}

// NewRegistry wraps an existing statestore.Store as a tab registry.
func NewRegistry(store statestore.Store) *Registry {
	return &Registry{store: store}
}

// Register records (or refreshes) a tab's directory and owning player.
func (r *Registry) Register(ctx context.Context, id, dir, playerKey string) error {
	err := r.store.Save(ctx, &statestore.ConversationState{
		ID:             id,
		UserID:         playerKey,
		LastAccessedAt: time.Now(),
		Metadata: map[string]interface{}{
			"dir": dir,
		},
	})
	if err != nil {
		return engineerr.New("tab", "registry_register", engineerr.PersistenceError, err)
	}
	return nil
}

// Lookup returns the directory a previously-registered tab was saved
// under, and whether it was found at all.
func (r *Registry) Lookup(ctx context.Context, id string) (dir string, ok bool, err error) {
	state, loadErr := r.store.Load(ctx, id)
	if loadErr == statestore.ErrNotFound {
		return "", false, nil
	}
	if loadErr != nil {
		return "", false, engineerr.New("tab", "registry_lookup", engineerr.PersistenceError, loadErr)
	}
	dir, _ = state.Metadata["dir"].(string)
	return dir, true, nil
}
