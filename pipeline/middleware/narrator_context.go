package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/Valaery/worldengine/convlog"
	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/pipeline"
	"github.com/Valaery/worldengine/template"
	"github.com/Valaery/worldengine/types"
	"github.com/Valaery/worldengine/variables"
	"github.com/Valaery/worldengine/worldstore"
)

// LoreEntry is a keyword-triggered lore snippet. Its Keywords are matched
// whole-word, case-insensitive, against the recent visible log and the
// current setting's own keyword list.
type LoreEntry struct {
	Keywords []string
	Text     string
}

// NarratorContext implements the turn pipeline's fifth step: assembling
// the narrator's LLM context by concatenating, in the fixed order spec.md
// names, the authored system message plus first-position PromptMods, the
// setting description, keyword-matched lore, the visible scene tail, and
// finally last-position PromptMods.
type NarratorContext struct {
	Store        *worldstore.Store
	Log          *convlog.Log
	Vars         variables.Provider
	Renderer     *template.Renderer
	Lore         []LoreEntry
	SystemPrompt string
}

func (m *NarratorContext) Name() string { return "narrator_context" }

func (m *NarratorContext) Process(tc *pipeline.Context, next func() error) error {
	if tc.ShortCircuited {
		return next()
	}

	snap := m.Store.Snapshot()
	player := snap.Actors[tc.Input.PlayerKey]
	setting := snap.Settings[player.CurrentSetting]

	systemPrompt := m.SystemPrompt
	if m.Vars != nil && m.Renderer != nil {
		if vars, err := m.Vars.Provide(context.Background(), snap); err == nil {
			if rendered, err := m.Renderer.Render(systemPrompt, vars); err == nil {
				systemPrompt = rendered
			}
		}
	}

	var system strings.Builder
	system.WriteString(systemPrompt)
	for _, mod := range tc.PreRules.PromptModsFirst {
		system.WriteString("\n")
		system.WriteString(mod)
	}
	if setting.Description != "" {
		system.WriteString("\n\n")
		system.WriteString(setting.Description)
	}

	tail := m.Log.SceneTail(tc.Scene)
	if snippets := matchingLore(m.Lore, tail, setting.Keywords); len(snippets) > 0 {
		system.WriteString("\n\n")
		system.WriteString(strings.Join(snippets, "\n"))
	}

	messages := []types.Message{{Role: "system", Content: system.String()}}
	for _, entry := range tail {
		messages = append(messages, types.Message{Role: narratorRole(entry.Role), Content: entry.Content})
	}
	for _, mod := range tc.PreRules.PromptModsLast {
		messages = append(messages, types.Message{Role: "system", Content: mod})
	}

	tc.NarratorMessages = messages
	return next()
}

func narratorRole(r model.Role) string {
	if r == model.RolePlayer {
		return "user"
	}
	return "assistant"
}

// matchingLore returns the text of every lore entry whose keywords appear,
// whole-word and case-insensitive, in the recent visible log or the
// setting's own keyword list.
func matchingLore(lore []LoreEntry, tail []model.TurnRecord, settingKeywords []string) []string {
	if len(lore) == 0 {
		return nil
	}

	var haystack strings.Builder
	for _, entry := range tail {
		haystack.WriteString(entry.Content)
		haystack.WriteByte(' ')
	}
	for _, kw := range settingKeywords {
		haystack.WriteString(kw)
		haystack.WriteByte(' ')
	}
	text := haystack.String()

	var out []string
	for _, l := range lore {
		for _, kw := range l.Keywords {
			if wholeWordMatch(text, kw) {
				out = append(out, l.Text)
				break
			}
		}
	}
	return out
}

func wholeWordMatch(haystack, word string) bool {
	if word == "" {
		return false
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	return re.MatchString(haystack)
}
