package workflow

// Handler names for the turn pipeline's thirteen states. These are the
// values a pipeline stage switches on to invoke the matching step.
const (
	HandlerIdle              = "idle"
	HandlerAcceptingInput    = "accept_input"
	HandlerPreRules          = "pre_rules"
	HandlerNarratorInference = "narrator_inference"
	HandlerPostRules         = "post_rules"
	HandlerNPCScheduling     = "npc_scheduling"
	HandlerNPCInference      = "npc_inference"
	HandlerPersisting        = "persisting"
)

// Event names driving transitions between turn pipeline states.
const (
	EventSubmit       = "Submit"
	EventIngested     = "Ingested"
	EventRulesApplied = "RulesApplied"
	EventInferred     = "Inferred"
	EventNarrated     = "Narrated"
	EventHasNPCs      = "HasNPCs"
	EventNoNPCs       = "NoNPCs"
	EventNextNPC      = "NextNPC"
	EventNPCsDone     = "NPCsDone"
	EventPersisted    = "Persisted"
	EventCancel       = "Cancel"
)

// StateIdle through StateCancelled are the turn pipeline's state names.
const (
	StateIdle              = "Idle"
	StateAcceptingInput    = "AcceptingInput"
	StatePreRules          = "PreRules"
	StateNarratorInference = "NarratorInference"
	StatePostRules         = "PostRules"
	StateNPCScheduling     = "NPCScheduling"
	StateNPCInference      = "NPCInference"
	StatePersisting        = "Persisting"
	StateCancelled         = "Cancelled"
)

// NewTurnSpec builds the thirteen-state turn pipeline machine:
//
//	Idle -> AcceptingInput -> PreRules -> NarratorInference -> PostRules ->
//	NPCScheduling -> (loop) NPCInference -> Persisting -> Idle
//
// Cancel is reachable from every non-terminal state and leads to the
// Cancelled terminal; in-flight inference is allowed to complete before
// the transition is recorded (the pipeline, not the machine, enforces that).
func NewTurnSpec() *Spec {
	spec := &Spec{
		Version: 1,
		Entry:   StateIdle,
		States: map[string]*State{
			StateIdle: {
				Handler:     HandlerIdle,
				Description: "waiting for player input; timer-fired rules processed here",
				OnEvent:     map[string]string{EventSubmit: StateAcceptingInput},
			},
			StateAcceptingInput: {
				Handler:     HandlerAcceptingInput,
				Description: "ingest input, increment turn, append player log entry",
				Persistence: PersistenceTransient,
				OnEvent: map[string]string{
					EventIngested: StatePreRules,
					EventCancel:   StateCancelled,
				},
			},
			StatePreRules: {
				Handler:     HandlerPreRules,
				Description: "rule engine pre-phase, scope=narrator, text-target=player input",
				Persistence: PersistenceTransient,
				OnEvent: map[string]string{
					EventRulesApplied: StateNarratorInference,
					EventCancel:       StateCancelled,
				},
			},
			StateNarratorInference: {
				Handler:     HandlerNarratorInference,
				Description: "compose narrator context, call the gateway, post-process output",
				Persistence: PersistenceTransient,
				OnEvent: map[string]string{
					EventInferred: StatePostRules,
					EventCancel:   StateCancelled,
				},
			},
			StatePostRules: {
				Handler:     HandlerPostRules,
				Description: "rule engine post-phase, scope=narrator, text-target=narrator output",
				Persistence: PersistenceTransient,
				OnEvent: map[string]string{
					EventNarrated: StateNPCScheduling,
					EventCancel:   StateCancelled,
				},
			},
			StateNPCScheduling: {
				Handler:     HandlerNPCScheduling,
				Description: "determine eligible NPCs and their dispatch mode",
				Persistence: PersistenceTransient,
				OnEvent: map[string]string{
					EventHasNPCs: StateNPCInference,
					EventNoNPCs:  StatePersisting,
					EventCancel:  StateCancelled,
				},
			},
			StateNPCInference: {
				Handler:     HandlerNPCInference,
				Description: "per-NPC pre-rules, inference, post-rules, log append",
				Persistence: PersistenceTransient,
				OnEvent: map[string]string{
					EventNextNPC:  StateNPCInference,
					EventNPCsDone: StatePersisting,
					EventCancel:   StateCancelled,
				},
			},
			StatePersisting: {
				Handler:     HandlerPersisting,
				Description: "atomically persist change sets, log, counters; re-enable input; timer tick",
				Persistence: PersistencePersistent,
				OnEvent:     map[string]string{EventPersisted: StateIdle},
			},
			StateCancelled: {
				Handler:     HandlerIdle,
				Description: "terminal state reached on host shutdown request",
				Persistence: PersistencePersistent,
			},
		},
	}
	return spec
}
