package worldstore

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_.]+)\}`)

// maxSubstitutionDepth bounds recursive resolution so a variable whose
// value itself contains a placeholder referencing another variable cannot
// loop forever; at depth 8 any remaining placeholder is left literal.
const maxSubstitutionDepth = 8

// DerivedBindings are values computed by the caller (the turn pipeline) and
// merged with stored variables for substitution: the player's display name,
// the player's current setting name, and a rendering of the game clock.
type DerivedBindings struct {
	PlayerName  string
	SettingName string
	GameClock   string
}

// Substitute resolves {name} placeholders in text against the snapshot's
// variables plus derived bindings. Unresolved placeholders are left
// literal. Values are resolved for reserved/scoped keys exactly as stored;
// callers pass pre-scoped lookup keys ("global:<name>" etc.) when they want
// a scoped lookup, otherwise the bare name is tried against the derived
// bindings map first and the "global:<name>" variable second.
func (snap Snapshot) Substitute(text string, derived DerivedBindings) string {
	bindings := snap.bindingMap(derived)
	return substitute(text, bindings, 0)
}

func (snap Snapshot) bindingMap(derived DerivedBindings) map[string]string {
	m := map[string]string{
		"player_name":  derived.PlayerName,
		"setting_name": derived.SettingName,
		"game_clock":   derived.GameClock,
	}
	for key, v := range snap.Variables {
		name := key
		if idx := strings.LastIndex(key, ":"); idx >= 0 {
			name = key[idx+1:]
		}
		m[name] = v.AsString()
	}
	return m
}

func substitute(text string, bindings map[string]string, depth int) string {
	if depth >= maxSubstitutionDepth {
		return text
	}
	replaced := false
	out := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := bindings[name]; ok {
			replaced = true
			return v
		}
		return match
	})
	if replaced && placeholderPattern.MatchString(out) && out != text {
		return substitute(out, bindings, depth+1)
	}
	return out
}
