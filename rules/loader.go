package rules

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Valaery/worldengine/engineerr"
	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/prompt/schema"
)

var schemaLoader = gojsonschema.NewStringLoader(ruleFileSchema)

// ruleFile is the on-disk shape of one rule record, accepting both the
// current condition_tree form and the legacy single-atom condition form.
type ruleFile struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	Enabled        bool                 `json:"enabled"`
	Priority       int                  `json:"priority"`
	Frequency      model.Frequency      `json:"frequency"`
	Scope          model.Scope          `json:"scope"`
	ConditionLogic string               `json:"condition_logic"`
	Conditions     []model.ConditionNode `json:"conditions"`
	Condition      *model.ConditionNode `json:"condition"`
	Actions        []model.Action       `json:"actions"`
	SystemMod      *model.SystemMessageMod `json:"system_message_mod"`
}

// ParseRuleFile validates raw against the rule file schema and parses it
// into a model.Rule. Unknown condition or action kinds are not rejected at
// this layer (the pure evaluator fails them closed at evaluation time per
// spec); only structural schema violations are rejected here.
func ParseRuleFile(raw []byte) (*model.Rule, error) {
	result, err := schema.ValidateJSONAgainstLoader(raw, schemaLoader)
	if err != nil {
		return nil, engineerr.New("rules", "parse_rule_file", engineerr.Malformed, err)
	}
	if !result.Valid {
		return nil, engineerr.New("rules", "parse_rule_file", engineerr.Malformed, nil).
			WithDetail(result.Errors[0].Error())
	}

	var rf ruleFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return nil, engineerr.New("rules", "parse_rule_file", engineerr.Malformed, err)
	}

	rule := &model.Rule{
		ID:          rf.ID,
		Name:        rf.Name,
		Description: rf.Description,
		Enabled:     rf.Enabled,
		Priority:    rf.Priority,
		Frequency:   rf.Frequency,
		Scope:       rf.Scope,
		Actions:     rf.Actions,
		SystemMod:   rf.SystemMod,
	}
	if rule.Scope == "" {
		rule.Scope = model.ScopeBoth
	}
	rule.Condition = buildConditionTree(rf)
	return rule, nil
}

func buildConditionTree(rf ruleFile) model.ConditionNode {
	if rf.Condition != nil {
		return model.PromoteLegacy(*rf.Condition)
	}
	if len(rf.Conditions) == 0 {
		return model.ConditionNode{}
	}
	if len(rf.Conditions) == 1 {
		return rf.Conditions[0]
	}
	kind := model.ConditionAnd
	if rf.ConditionLogic == "OR" {
		kind = model.ConditionOr
	}
	return model.ConditionNode{Kind: kind, Children: rf.Conditions}
}
