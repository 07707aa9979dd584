package model

// ActionKind discriminates the tagged variants of an Action.
type ActionKind string

const (
	ActionSetVariable        ActionKind = "set_variable"
	ActionModifyVariable     ActionKind = "modify_variable"
	ActionMoveActor          ActionKind = "move_actor"
	ActionGiveItem           ActionKind = "give_item"
	ActionRemoveItem         ActionKind = "remove_item"
	ActionStartTimer         ActionKind = "start_timer"
	ActionCancelTimer        ActionKind = "cancel_timer"
	ActionTriggerRuleByID    ActionKind = "trigger_rule_by_id"
	ActionAppendSystemMsg    ActionKind = "append_system_message"
	ActionOverrideNext       ActionKind = "override_next_response"
	ActionDisplayMessage     ActionKind = "display_message"
	ActionSetScene           ActionKind = "set_scene"
	ActionEndScene           ActionKind = "end_scene"
	ActionPlayEffect         ActionKind = "play_effect"
)

// ModifyOp is the arithmetic operator for ActionModifyVariable.
type ModifyOp string

const (
	ModifyAdd ModifyOp = "add"
	ModifySub ModifyOp = "sub"
	ModifyMul ModifyOp = "mul"
)

// Action is a tagged variant of a single effect a fired rule performs.
// Fields are populated according to Kind; unused fields are zero.
type Action struct {
	Kind ActionKind `json:"kind"`

	// ActionSetVariable / ActionModifyVariable
	VariableName string   `json:"variable_name,omitempty"`
	Value        Variable `json:"value,omitempty"`
	ModifyOp     ModifyOp `json:"modify_op,omitempty"`

	// ActionMoveActor
	ActorKey   string `json:"actor_key,omitempty"`
	SettingKey string `json:"setting_key,omitempty"`

	// ActionGiveItem / ActionRemoveItem
	ItemKey  string `json:"item_key,omitempty"`
	Quantity int    `json:"quantity,omitempty"`

	// ActionStartTimer / ActionCancelTimer / ActionTriggerRuleByID
	TimerKey   string `json:"timer_key,omitempty"`
	RuleID     string `json:"rule_id,omitempty"`
	IntervalMs int64  `json:"interval_ms,omitempty"`
	OneShot    bool   `json:"one_shot,omitempty"`
	Jitter     bool   `json:"jitter,omitempty"`
	SimClock   bool   `json:"sim_clock,omitempty"`

	// ActionAppendSystemMsg
	Position ModPosition `json:"position,omitempty"`
	Text     string      `json:"text,omitempty"`

	// ActionDisplayMessage / ActionPlayEffect
	Message string `json:"message,omitempty"`
	Effect  string `json:"effect,omitempty"`

	// ActionSetScene
	SceneNumber int `json:"scene_number,omitempty"`
}

// ChangeItem describes one entity mutation destined for the world store's
// ApplyChangeSet, derived from executing an Action against a snapshot.
type ChangeItem struct {
	Kind       ActionKind
	ActorKey   string
	SettingKey string
	ItemKey    string
	Quantity   int
	Variable   string
	Value      Variable
	ModifyOp   ModifyOp
}

// ChangeSet is a group of mutations applied transactionally: all succeed or
// none are written, per the world store's fail-closed apply semantics.
type ChangeSet struct {
	Items []ChangeItem
}
