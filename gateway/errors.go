package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/Valaery/worldengine/engineerr"
)

// classifyProviderError maps a raw provider error into the engine's closed
// error-kind taxonomy.
func classifyProviderError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return engineerr.New("gateway", "complete", engineerr.Timeout, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "maximum context length") || strings.Contains(msg, "context_length_exceeded") || strings.Contains(msg, "context window"):
		return engineerr.New("gateway", "complete", engineerr.ContextOverflow, err)
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return engineerr.New("gateway", "complete", engineerr.TransportError, err)
	case strings.Contains(msg, "missing") && strings.Contains(msg, "field"):
		return engineerr.New("gateway", "complete", engineerr.Malformed, err)
	default:
		return engineerr.New("gateway", "complete", engineerr.TransportError, err)
	}
}

// isContextOverflow reports whether err carries the ContextOverflow kind.
func isContextOverflow(err error) bool {
	return errors.Is(err, engineerr.ContextOverflow)
}
