// Package variables provides dynamic variable resolution for prompt templates.
// Variable providers can inject context from external sources (the world
// store snapshot, the game clock, tab metadata) before template rendering.
package variables

import (
	"context"

	"github.com/Valaery/worldengine/worldstore"
)

// Provider resolves variables dynamically at runtime.
// Variables returned override static variables with the same key.
// Providers are called before template rendering to inject dynamic context.
type Provider interface {
	// Name returns the provider identifier (for logging/debugging)
	Name() string

	// Provide returns variables to inject into template context, derived
	// from a world-store snapshot taken for the current turn.
	Provide(ctx context.Context, snap worldstore.Snapshot) (map[string]string, error)
}
