// Package convlog implements the append-only, scene-partitioned
// conversation log: visibility-filtered context reconstruction for
// narrator and NPC inference, and error-marker skipping.
package convlog

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Valaery/worldengine/model"
)

// ErrorMarkerPrefix is the recognizable error marker (see the engine's
// error-handling design): entries whose content starts with this prefix
// are skipped when reconstructing context for subsequent inferences.
const ErrorMarkerPrefix = "Sorry,"

// Log is the append-only conversation log for one tab.
type Log struct {
	mu      sync.RWMutex
	entries []model.TurnRecord
}

// New creates an empty Log.
func New() *Log {
	return &Log{}
}

// Append adds one entry, stamping an ID and marking it as an error entry if
// its content carries the recognizable error-marker prefix.
func (l *Log) Append(entry model.TurnRecord) model.TurnRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RealTime.IsZero() {
		entry.RealTime = time.Now()
	}
	entry.Error = strings.HasPrefix(strings.TrimSpace(entry.Content), ErrorMarkerPrefix)
	l.entries = append(l.entries, entry)
	return entry
}

// All returns a copy of every entry ever appended, across all scenes —
// used for save/replay, never for prompt construction.
func (l *Log) All() []model.TurnRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.TurnRecord, len(l.entries))
	copy(out, l.entries)
	return out
}

// LastBySpeaker returns the most recent non-error entry authored by
// speakerKey, used for duplicate-response detection.
func (l *Log) LastBySpeaker(speakerKey string) (model.TurnRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.SpeakerKey == speakerKey && !e.Error {
			return e, true
		}
	}
	return model.TurnRecord{}, false
}

// SceneTail returns entries from the given scene only, skipping error
// markers, suitable for direct narrator context construction (the
// narrator sees the whole scene, unfiltered by actor visibility).
func (l *Log) SceneTail(scene int) []model.TurnRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.TurnRecord
	for _, e := range l.entries {
		if e.Scene != scene || e.Error {
			continue
		}
		out = append(out, e)
	}
	return out
}

// VisibleTo returns entries from the given scene visible to viewerKey
// located at viewerSetting, skipping error markers. Used to build NPC
// contexts, which are filtered by the visibility rules (§4.2) unlike the
// narrator's unfiltered scene tail.
func (l *Log) VisibleTo(scene int, viewerKey, viewerSetting string) []model.TurnRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.TurnRecord
	for _, e := range l.entries {
		if e.Scene != scene || e.Error {
			continue
		}
		if e.IsVisibleTo(viewerKey, viewerSetting) {
			out = append(out, e)
		}
	}
	return out
}
