// Package rules implements the pure condition evaluator and the rule
// engine orchestrator: a tagged-variant condition tree matched by type
// switch, never an embedded expression language.
package rules

import (
	"context"
	"strconv"
	"strings"

	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/worldstore"
)

// Classifier invokes the LLM classifier for a text-tag condition atom. It
// returns the tag the model assigned, or "" if the model output did not
// validate against the allow-list (treated as "no tag").
type Classifier func(ctx context.Context, text string, allowedTags []string) (string, error)

// EvalContext bundles the inputs a single condition-tree evaluation needs.
type EvalContext struct {
	Snapshot   worldstore.Snapshot
	TextTarget string
	Classifier Classifier
}

// Evaluate is the pure evaluator entry point: a function of (node,
// snapshot, text-target) alone, except for the LLM classifier callback
// explicitly permitted by a text-tag atom.
func Evaluate(ctx context.Context, node model.ConditionNode, ec EvalContext) bool {
	switch node.Kind {
	case model.ConditionAnd:
		for _, child := range node.Children {
			if !Evaluate(ctx, child, ec) {
				return false
			}
		}
		return true
	case model.ConditionOr:
		for _, child := range node.Children {
			if Evaluate(ctx, child, ec) {
				return true
			}
		}
		return false
	case model.ConditionNot:
		if len(node.Children) != 1 {
			return false
		}
		return !Evaluate(ctx, node.Children[0], ec)
	case model.ConditionVariableCompare:
		return evalVariableCompare(node, ec.Snapshot)
	case model.ConditionActorInSetting:
		return evalActorInSetting(node, ec.Snapshot)
	case model.ConditionItemInInventory:
		return evalItemInInventory(node, ec.Snapshot)
	case model.ConditionTimeInWindow:
		return evalTimeInWindow(node, ec.Snapshot)
	case model.ConditionTextTag:
		return evalTextTag(ctx, node, ec)
	case model.ConditionKeyword:
		return evalKeyword(node, ec.TextTarget)
	case model.ConditionSceneTurn:
		return evalSceneTurn(node, ec.Snapshot)
	default:
		// Unknown kind fails the rule closed rather than raising.
		return false
	}
}

// EvaluateTree evaluates a whole tree; an empty condition (zero-value node
// with no kind and no children) is true per the "empty condition list =
// true" rule.
func EvaluateTree(ctx context.Context, node model.ConditionNode, ec EvalContext) bool {
	if node.Kind == "" && len(node.Children) == 0 {
		return true
	}
	return Evaluate(ctx, node, ec)
}

func evalVariableCompare(node model.ConditionNode, snap worldstore.Snapshot) bool {
	actual := snap.Variable(node.VariableName)
	return compare(actual, node.Op, node.Value)
}

func compare(actual model.Variable, op model.CompareOp, want model.Variable) bool {
	t := want.Type
	if t == "" {
		t = actual.Type
	}
	switch t {
	case model.VarNumber:
		return compareNumber(actual.AsNumber(), op, want.AsNumber())
	case model.VarBool:
		return compareBool(actual.AsBool(), op, want.AsBool())
	default:
		return compareString(actual.AsString(), op, want.AsString())
	}
}

func compareNumber(a float64, op model.CompareOp, b float64) bool {
	switch op {
	case model.OpEq:
		return a == b
	case model.OpNeq:
		return a != b
	case model.OpLt:
		return a < b
	case model.OpGt:
		return a > b
	case model.OpLte:
		return a <= b
	case model.OpGte:
		return a >= b
	default:
		return false
	}
}

func compareBool(a bool, op model.CompareOp, b bool) bool {
	switch op {
	case model.OpEq:
		return a == b
	case model.OpNeq:
		return a != b
	default:
		return false
	}
}

func compareString(a string, op model.CompareOp, b string) bool {
	switch op {
	case model.OpEq:
		return a == b
	case model.OpNeq:
		return a != b
	case model.OpContains:
		return strings.Contains(a, b)
	case model.OpNotContains:
		return !strings.Contains(a, b)
	case model.OpLt:
		return a < b
	case model.OpGt:
		return a > b
	case model.OpLte:
		return a <= b
	case model.OpGte:
		return a >= b
	default:
		return false
	}
}

func evalActorInSetting(node model.ConditionNode, snap worldstore.Snapshot) bool {
	a, ok := snap.Actors[node.ActorKey]
	if !ok {
		return false
	}
	return a.CurrentSetting == node.SettingKey
}

func evalItemInInventory(node model.ConditionNode, snap worldstore.Snapshot) bool {
	a, ok := snap.Actors[node.ActorKey]
	if !ok {
		return false
	}
	min := node.MinQuantity
	if min == 0 {
		min = 1
	}
	for _, ref := range a.Inventory {
		if strings.Contains(strings.ToLower(ref.Key), strings.ToLower(node.ItemName)) && ref.Quantity >= min {
			return true
		}
	}
	return false
}

// evalTimeInWindow checks the game clock's virtual time-of-day against an
// inclusive-start/exclusive-end window; windows that wrap midnight (end <
// start) are split into two non-wrapping ranges and either satisfies it.
func evalTimeInWindow(node model.ConditionNode, snap worldstore.Snapshot) bool {
	cur := snap.Clock.Virtual
	curMinutes := cur.Hour()*60 + cur.Minute()

	start, ok1 := parseHHMM(node.WindowStart)
	end, ok2 := parseHHMM(node.WindowEnd)
	if !ok1 || !ok2 {
		return false
	}
	if start <= end {
		return curMinutes >= start && curMinutes < end
	}
	// Wraps midnight: split into [start, 1440) and [0, end).
	return curMinutes >= start || curMinutes < end
}

func parseHHMM(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return h*60 + m, true
}

func evalTextTag(ctx context.Context, node model.ConditionNode, ec EvalContext) bool {
	if ec.Classifier == nil || ec.TextTarget == "" {
		return false
	}
	tag, err := ec.Classifier(ctx, ec.TextTarget, node.AllowedTags)
	if err != nil || tag == "" {
		return false
	}
	for _, allowed := range node.AllowedTags {
		if strings.EqualFold(allowed, tag) {
			return true
		}
	}
	return false
}

func evalKeyword(node model.ConditionNode, target string) bool {
	return wholeWordFold(target, node.Keyword)
}

func evalSceneTurn(node model.ConditionNode, snap worldstore.Snapshot) bool {
	var actual float64
	switch node.Field {
	case model.FieldScene:
		actual = float64(snap.Scene)
	case model.FieldTurn:
		actual = float64(snap.Turn)
	default:
		return false
	}
	return compareNumber(actual, node.Op, node.Value.AsNumber())
}

// wholeWordFold reports whether word appears in text as a whole word,
// case-insensitively.
func wholeWordFold(text, word string) bool {
	if word == "" {
		return false
	}
	lowText := strings.ToLower(text)
	lowWord := strings.ToLower(word)
	idx := 0
	for {
		pos := strings.Index(lowText[idx:], lowWord)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(lowWord)
		beforeOK := start == 0 || !isWordByte(lowText[start-1])
		afterOK := end == len(lowText) || !isWordByte(lowText[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
