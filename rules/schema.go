package rules

// ruleFileSchema is the JSON Schema new rule files are validated against
// before parsing, per the rule file format in the engine's external
// interfaces: id/name/description/enabled/priority/frequency/condition
// fields, with either condition_logic+conditions or a legacy single
// condition.
const ruleFileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "enabled", "priority", "frequency", "actions"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "description": {"type": "string"},
    "enabled": {"type": "boolean"},
    "priority": {"type": "integer"},
    "frequency": {"enum": ["once", "per_turn", "timer"]},
    "scope": {"enum": ["narrator", "npc", "both"]},
    "condition_logic": {"enum": ["AND", "OR"]},
    "conditions": {"type": "array"},
    "condition": {"type": "object"},
    "actions": {"type": "array"}
  }
}`
