package model

import "time"

// Role identifies the originator of a conversation-log entry.
type Role string

const (
	RolePlayer   Role = "player"
	RoleNarrator Role = "narrator"
	RoleNPC      Role = "npc"
	RoleSystem   Role = "system"
)

// Visibility controls which viewers may see a TurnRecord when a context is
// reconstructed for an actor other than the narrator.
type Visibility string

const (
	VisibilityPublicInLocation  Visibility = "public-in-location"
	VisibilityWhisperTo         Visibility = "whisper-to"
	VisibilityPrivateThought    Visibility = "private-thought"
	VisibilityGlobalAnnouncement Visibility = "global-announcement"
)

// TurnRecord is one append-only conversation log entry.
type TurnRecord struct {
	ID           string     `json:"id"`
	Role         Role       `json:"role"`
	Content      string     `json:"content"`
	Scene        int        `json:"scene"`
	Turn         int        `json:"turn"`
	SpeakerKey   string     `json:"speaker_key,omitempty"`
	Location     string     `json:"location,omitempty"`
	Visibility   Visibility `json:"visibility"`
	WhisperTarget string    `json:"whisper_target,omitempty"`
	TextTag      string     `json:"text_tag,omitempty"`
	RealTime     time.Time  `json:"real_time"`
	GameTime     string     `json:"game_time,omitempty"`
	Error        bool       `json:"error,omitempty"`
}

// IsVisibleTo reports whether the entry should be included in the context
// built for viewerKey, currently located at viewerSetting. The narrator
// always sees everything from the active scene (callers for the narrator
// context do not call this filter at all, per the spec's visibility
// filter applying only to non-narrator actors).
func (t TurnRecord) IsVisibleTo(viewerKey, viewerSetting string) bool {
	if t.Role == RoleSystem {
		return true
	}
	switch t.Visibility {
	case VisibilityGlobalAnnouncement:
		return true
	case VisibilityWhisperTo:
		return viewerKey == t.SpeakerKey || viewerKey == t.WhisperTarget
	case VisibilityPrivateThought:
		return viewerKey == t.SpeakerKey
	case VisibilityPublicInLocation:
		return viewerSetting != "" && viewerSetting == t.Location
	default:
		return t.Role == RoleSystem
	}
}
