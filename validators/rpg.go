package validators

import (
	"regexp"
	"strings"
)

// InvalidReason names why a pre-inference intent was rejected.
type InvalidReason string

const (
	ReasonNoItem       InvalidReason = "no_item"
	ReasonNoAbility    InvalidReason = "no_ability"
	ReasonNoTarget     InvalidReason = "no_reachable_target"
)

// Intent is the structured classification of player input produced by the
// optional intent-extraction utility call.
type Intent struct {
	Kind   string // move, attack, talk, use_item, examine, other
	Target string
	Method string
}

// PreValidate checks an intent against what the acting actor can actually
// do, returning the empty reason and true when the action is possible.
// hasItem/hasAbility/targetPresent are derived from a world-store snapshot
// by the caller, never hardcoded.
func PreValidate(intent Intent, hasItem, hasAbility, targetPresent func(name string) bool) (InvalidReason, bool) {
	switch intent.Kind {
	case "use_item":
		if intent.Target != "" && hasItem != nil && !hasItem(intent.Target) {
			return ReasonNoItem, false
		}
	case "attack":
		if intent.Method != "" && hasAbility != nil && !hasAbility(intent.Method) {
			return ReasonNoAbility, false
		}
		if intent.Target != "" && targetPresent != nil && !targetPresent(intent.Target) {
			return ReasonNoTarget, false
		}
	case "talk":
		if intent.Target != "" && targetPresent != nil && !targetPresent(intent.Target) {
			return ReasonNoTarget, false
		}
	}
	return "", true
}

// ForbiddenTokenResult reports the disallowed entities found in generated
// narration, each tied to the word-boundary match that found it.
type ForbiddenTokenResult struct {
	OK        bool
	Forbidden []string
}

// PostValidateForbiddenTokens scans content for mentions of inventory items
// the player does not have, abilities the player's class lacks, and NPCs
// not present in the current setting. present/abilities/inventory come
// from a world-store snapshot for the current turn, not a static list.
func PostValidateForbiddenTokens(content string, forbiddenAbsentItems, forbiddenAbsentAbilities, forbiddenAbsentNPCs []string) ForbiddenTokenResult {
	var hits []string
	for _, name := range allNonEmpty(forbiddenAbsentItems, forbiddenAbsentAbilities, forbiddenAbsentNPCs) {
		if wholeWordMatch(content, name) {
			hits = append(hits, name)
		}
	}
	return ForbiddenTokenResult{OK: len(hits) == 0, Forbidden: hits}
}

func allNonEmpty(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		for _, s := range l {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func wholeWordMatch(content, word string) bool {
	pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	return pattern.MatchString(content)
}
