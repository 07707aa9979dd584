package timers

import (
	"context"
	"sync"
	"time"

	"github.com/Valaery/worldengine/model"
)

// DefaultHeartbeatInterval is the coarse real-time tick rate: the spec
// requires at least 1 Hz.
const DefaultHeartbeatInterval = 500 * time.Millisecond

// Heartbeat runs a single background goroutine, shared by every tab's
// timer Set, rather than one goroutine per tab — the goroutine count stays
// bounded regardless of how many tabs are open. Each tick calls every
// registered tab's OnDue callback with the timers that became due.
type Heartbeat struct {
	interval time.Duration

	mu   sync.Mutex
	tabs map[string]*registration
}

type registration struct {
	set   *Set
	onDue func(tabID string, due []*model.Timer)
}

// NewHeartbeat creates a Heartbeat ticking at interval (DefaultHeartbeatInterval
// if zero).
func NewHeartbeat(interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Heartbeat{interval: interval, tabs: make(map[string]*registration)}
}

// Register attaches tabID's timer Set to the shared heartbeat. onDue is
// invoked from the heartbeat goroutine every tick that produces due
// timers — callers must not block in it for long.
func (h *Heartbeat) Register(tabID string, set *Set, onDue func(tabID string, due []*model.Timer)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tabs[tabID] = &registration{set: set, onDue: onDue}
}

// Unregister detaches a tab, called when it closes.
func (h *Heartbeat) Unregister(tabID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.tabs, tabID)
}

// Run drives the heartbeat until ctx is cancelled. Intended to be started
// once per engine instance in its own goroutine.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.tick()
		}
	}
}

func (h *Heartbeat) tick() {
	h.mu.Lock()
	regs := make(map[string]*registration, len(h.tabs))
	for k, v := range h.tabs {
		regs[k] = v
	}
	h.mu.Unlock()

	elapsedMs := h.interval.Milliseconds()
	for tabID, reg := range regs {
		due := reg.set.TickWall(elapsedMs)
		if len(due) > 0 {
			reg.onDue(tabID, due)
		}
	}
}
