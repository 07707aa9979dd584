package variables

import (
	"context"
	"fmt"
	"strings"

	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/worldstore"
)

// StateProvider resolves variables from the world store's global variable
// table. Reserved-prefix variables (internal bookkeeping, never surfaced to
// a prompt) are always excluded regardless of KeyPrefix.
type StateProvider struct {
	// KeyPrefix filters variable names. Only names with this prefix are
	// included. If empty, all non-reserved variables are included.
	KeyPrefix string

	// StripPrefix removes the KeyPrefix from variable names when true.
	// For example, if KeyPrefix="npc_" and StripPrefix=true, variable
	// "npc_mood" becomes template variable "mood".
	StripPrefix bool
}

// NewStateProvider creates a StateProvider that extracts all non-reserved
// world-store variables.
func NewStateProvider() *StateProvider {
	return &StateProvider{}
}

// NewStatePrefixProvider creates a StateProvider that only extracts variable
// names with the given prefix. If stripPrefix is true, the prefix is removed
// from the resulting variable names.
func NewStatePrefixProvider(prefix string, stripPrefix bool) *StateProvider {
	return &StateProvider{KeyPrefix: prefix, StripPrefix: stripPrefix}
}

// Name returns the provider identifier.
func (p *StateProvider) Name() string {
	if p.KeyPrefix != "" {
		return fmt.Sprintf("state[%s]", p.KeyPrefix)
	}
	return "state"
}

// Provide extracts variables from the world store snapshot's global
// variable table.
func (p *StateProvider) Provide(ctx context.Context, snap worldstore.Snapshot) (map[string]string, error) {
	if len(snap.Variables) == 0 {
		return nil, nil
	}

	result := make(map[string]string)
	for k, v := range snap.Variables {
		bare := k
		if idx := strings.LastIndex(bare, ":"); idx >= 0 {
			bare = bare[idx+1:]
		}
		if model.IsReserved(bare) {
			continue
		}
		if p.KeyPrefix != "" && !strings.HasPrefix(bare, p.KeyPrefix) {
			continue
		}

		varName := bare
		if p.StripPrefix && p.KeyPrefix != "" {
			varName = strings.TrimPrefix(bare, p.KeyPrefix)
		}
		result[varName] = v.AsString()
	}

	return result, nil
}
