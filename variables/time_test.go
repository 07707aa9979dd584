package variables

import (
	"context"
	"testing"
	"time"

	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/worldstore"
)

func TestTimeProvider_Name(t *testing.T) {
	p := NewTimeProvider()
	if got := p.Name(); got != "time" {
		t.Errorf("TimeProvider.Name() = %v, want %v", got, "time")
	}
}

func TestTimeProvider_Provide(t *testing.T) {
	// Fixed time for testing: Monday, January 15, 2024, 14:30:00 UTC
	fixedTime := time.Date(2024, time.January, 15, 14, 30, 0, 0, time.UTC)
	snapAt := func(tm time.Time) worldstore.Snapshot {
		return worldstore.Snapshot{Clock: model.GameClock{Virtual: tm}}
	}

	tests := []struct {
		name     string
		provider *TimeProvider
		want     map[string]string
	}{
		{
			name:     "default provider reads the game clock",
			provider: NewTimeProvider(),
			want: map[string]string{
				"game_clock":   "2024-01-15T14:30:00Z",
				"game_date":    "2024-01-15",
				"game_year":    "2024",
				"game_month":   "January",
				"game_weekday": "Monday",
				"game_hour":    "14",
			},
		},
		{
			name:     "custom format",
			provider: NewTimeProviderWithFormat("2006/01/02 15:04"),
			want: map[string]string{
				"game_clock":   "2024/01/15 14:30",
				"game_date":    "2024-01-15",
				"game_year":    "2024",
				"game_month":   "January",
				"game_weekday": "Monday",
				"game_hour":    "14",
			},
		},
		{
			name:     "with timezone",
			provider: NewTimeProviderWithLocation(time.FixedZone("EST", -5*60*60)),
			want: map[string]string{
				"game_clock":   "2024-01-15T09:30:00-05:00",
				"game_date":    "2024-01-15",
				"game_year":    "2024",
				"game_month":   "January",
				"game_weekday": "Monday",
				"game_hour":    "09",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.provider.Provide(context.Background(), snapAt(fixedTime))
			if err != nil {
				t.Errorf("TimeProvider.Provide() error = %v", err)
				return
			}

			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("TimeProvider.Provide()[%s] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestTimeProvider_FallsBackToWallClockWhenClockNeverAdvanced(t *testing.T) {
	fixedTime := time.Date(2024, time.January, 15, 14, 30, 0, 0, time.UTC)
	p := NewTimeProvider().WithNowFunc(func() time.Time { return fixedTime })

	got, err := p.Provide(context.Background(), worldstore.Snapshot{})
	if err != nil {
		t.Errorf("TimeProvider.Provide() error = %v", err)
		return
	}

	if got["game_clock"] != "2024-01-15T14:30:00Z" {
		t.Errorf("TimeProvider.Provide()[game_clock] = %v, want %v", got["game_clock"], "2024-01-15T14:30:00Z")
	}
}
