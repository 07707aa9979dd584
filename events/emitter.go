package events

import "time"

// Emitter provides helpers for publishing runtime events with shared metadata.
type Emitter struct {
	bus   *EventBus
	runID string
	tabID string
}

// NewEmitter creates a new event emitter scoped to a run and a tab.
func NewEmitter(bus *EventBus, runID, tabID string) *Emitter {
	return &Emitter{
		bus:   bus,
		runID: runID,
		tabID: tabID,
	}
}

// emit publishes an event with shared context fields.
func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.bus == nil {
		return
	}

	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		RunID:     e.runID,
		TabID:     e.tabID,
		Data:      data,
	}

	e.bus.Publish(event)
}

// TurnStarted emits the turn.started event.
func (e *Emitter) TurnStarted(turn, scene int, player string) {
	e.emit(EventTurnStarted, TurnStartedData{
		Turn:   turn,
		Scene:  scene,
		Player: player,
	})
}

// TurnCompleted emits the turn.completed event.
func (e *Emitter) TurnCompleted(turn int, duration time.Duration, cancelled bool) {
	e.emit(EventTurnCompleted, TurnCompletedData{
		Turn:      turn,
		Duration:  duration,
		Cancelled: cancelled,
	})
}

// MessageAppended emits the message.appended event.
func (e *Emitter) MessageAppended(role, speaker, content, visibility string) {
	e.emit(EventMessageAppended, MessageAppendedData{
		Role:       role,
		Speaker:    speaker,
		Content:    content,
		Visibility: visibility,
	})
}

// StateChanged emits the state.changed event for the given affected keys.
// Emits nothing if keys is empty.
func (e *Emitter) StateChanged(keys []string) {
	if len(keys) == 0 {
		return
	}
	e.emit(EventStateChanged, StateChangedData{Keys: keys})
}

// TimerFired emits the timer.fired event for a due rule.
func (e *Emitter) TimerFired(ruleID string) {
	e.emit(EventTimerFired, TimerFiredData{RuleID: ruleID})
}

// InferenceError emits the inference.error event for an unrecovered model call failure.
func (e *Emitter) InferenceError(kind string) {
	e.emit(EventInferenceError, InferenceErrorData{Kind: kind})
}

// ProviderCallStarted emits the provider.call.started event.
func (e *Emitter) ProviderCallStarted(provider, model string, messageCount int) {
	e.emit(EventProviderCallStarted, ProviderCallStartedData{
		Provider:     provider,
		Model:        model,
		MessageCount: messageCount,
	})
}

// ProviderCallCompleted emits the provider.call.completed event.
func (e *Emitter) ProviderCallCompleted(data *ProviderCallCompletedData) {
	if data == nil {
		return
	}
	e.emit(EventProviderCallCompleted, *data)
}

// ProviderCallFailed emits the provider.call.failed event.
func (e *Emitter) ProviderCallFailed(provider, model string, err error, duration time.Duration) {
	e.emit(EventProviderCallFailed, ProviderCallFailedData{
		Provider: provider,
		Model:    model,
		Error:    err,
		Duration: duration,
	})
}

// ValidationStarted emits the validation.started event.
func (e *Emitter) ValidationStarted(validatorName, validatorType string) {
	e.emit(EventValidationStarted, ValidationStartedData{
		ValidatorName: validatorName,
		ValidatorType: validatorType,
	})
}

// ValidationPassed emits the validation.passed event.
func (e *Emitter) ValidationPassed(validatorName, validatorType string, duration time.Duration) {
	e.emit(EventValidationPassed, ValidationPassedData{
		ValidatorName: validatorName,
		ValidatorType: validatorType,
		Duration:      duration,
	})
}

// ValidationFailed emits the validation.failed event.
func (e *Emitter) ValidationFailed(
	validatorName, validatorType string,
	err error,
	duration time.Duration,
	violations []string,
) {
	e.emit(EventValidationFailed, ValidationFailedData{
		ValidatorName: validatorName,
		ValidatorType: validatorType,
		Error:         err,
		Duration:      duration,
		Violations:    violations,
	})
}

// EmitCustom allows middleware to emit arbitrary event types with structured payloads.
func (e *Emitter) EmitCustom(
	eventType EventType,
	middlewareName, eventName string,
	data map[string]interface{},
	message string,
) {
	e.emit(eventType, CustomEventData{
		MiddlewareName: middlewareName,
		EventName:      eventName,
		Data:           data,
		Message:        message,
	})
}
