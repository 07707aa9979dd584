package variables

import (
	"context"
	"time"

	"github.com/Valaery/worldengine/worldstore"
)

// TimeProvider provides in-world clock variables derived from the game
// clock carried on the snapshot (not necessarily wall-clock time — a
// static or scaled clock mode advances independently of real time).
// Useful for prompts that need temporal context like "What time is it?"
// or time-of-day gated narration.
type TimeProvider struct {
	// Format is the time format string for current_time. Defaults to
	// time.RFC3339 if empty.
	Format string

	// Location specifies the timezone. Defaults to UTC if nil.
	Location *time.Location

	// nowFunc allows injecting a custom wall-clock source for testing;
	// used only as a fallback when the snapshot's clock carries a zero
	// virtual time (clock never advanced).
	nowFunc func() time.Time
}

// NewTimeProvider creates a TimeProvider with default settings (UTC, RFC3339 format).
func NewTimeProvider() *TimeProvider {
	return &TimeProvider{}
}

// NewTimeProviderWithLocation creates a TimeProvider for a specific timezone.
func NewTimeProviderWithLocation(loc *time.Location) *TimeProvider {
	return &TimeProvider{Location: loc}
}

// NewTimeProviderWithFormat creates a TimeProvider with a custom time format.
func NewTimeProviderWithFormat(format string) *TimeProvider {
	return &TimeProvider{Format: format}
}

// Name returns the provider identifier.
func (p *TimeProvider) Name() string {
	return "time"
}

// Provide returns in-world clock variables.
// Variables provided:
//   - game_clock: Full timestamp in configured format
//   - game_date: Date in YYYY-MM-DD format
//   - game_year: Four-digit year
//   - game_month: Full month name (e.g., "January")
//   - game_weekday: Full weekday name (e.g., "Monday")
//   - game_hour: Hour in 24-hour format (00-23)
func (p *TimeProvider) Provide(ctx context.Context, snap worldstore.Snapshot) (map[string]string, error) {
	now := snap.Clock.Virtual
	if now.IsZero() {
		now = p.now()
	}

	if p.Location != nil {
		now = now.In(p.Location)
	}

	format := p.Format
	if format == "" {
		format = time.RFC3339
	}

	return map[string]string{
		"game_clock":   now.Format(format),
		"game_date":    now.Format("2006-01-02"),
		"game_year":    now.Format("2006"),
		"game_month":   now.Month().String(),
		"game_weekday": now.Weekday().String(),
		"game_hour":    now.Format("15"),
	}, nil
}

// now returns the current wall-clock time, using the injected nowFunc if available.
func (p *TimeProvider) now() time.Time {
	if p.nowFunc != nil {
		return p.nowFunc()
	}
	return time.Now()
}

// WithNowFunc sets a custom time source (primarily for testing).
func (p *TimeProvider) WithNowFunc(fn func() time.Time) *TimeProvider {
	p.nowFunc = fn
	return p
}
