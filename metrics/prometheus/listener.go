// Package prometheus provides Prometheus metrics for the turn engine.
package prometheus

import (
	"github.com/Valaery/worldengine/events"
)

// Status constants for metric labels.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// MetricsListener records turn-engine events as Prometheus metrics.
// It implements the events.Listener signature and should be registered
// with an EventBus using SubscribeAll.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records relevant metrics.
// This method is designed to be used with EventBus.SubscribeAll.
func (l *MetricsListener) Handle(event *events.Event) {
	//exhaustive:ignore
	switch event.Type {
	case events.EventTurnStarted:
		RecordTurnStart()
	case events.EventTurnCompleted:
		l.handleTurnCompleted(event)
	case events.EventMessageAppended:
		l.handleMessageAppended(event)
	case events.EventStateChanged:
		l.handleStateChanged(event)
	case events.EventTimerFired:
		l.handleTimerFired(event)
	case events.EventInferenceError:
		l.handleInferenceError(event)
	case events.EventProviderCallCompleted:
		l.handleProviderCallCompleted(event)
	case events.EventProviderCallFailed:
		l.handleProviderCallFailed(event)
	default:
		// Ignore events that don't have metrics
	}
}

func (l *MetricsListener) handleTurnCompleted(event *events.Event) {
	if data, ok := event.Data.(events.TurnCompletedData); ok {
		RecordTurnEnd(data.Cancelled, data.Duration.Seconds())
	}
}

func (l *MetricsListener) handleMessageAppended(event *events.Event) {
	if data, ok := event.Data.(events.MessageAppendedData); ok {
		RecordMessageAppended(data.Role)
	}
}

func (l *MetricsListener) handleStateChanged(event *events.Event) {
	if data, ok := event.Data.(events.StateChangedData); ok {
		RecordStateChange(len(data.Keys))
	}
}

func (l *MetricsListener) handleTimerFired(event *events.Event) {
	if data, ok := event.Data.(events.TimerFiredData); ok {
		RecordTimerFired(data.RuleID)
	}
}

func (l *MetricsListener) handleInferenceError(event *events.Event) {
	if data, ok := event.Data.(events.InferenceErrorData); ok {
		RecordInferenceError(data.Kind)
	}
}

func (l *MetricsListener) handleProviderCallCompleted(event *events.Event) {
	if data, ok := event.Data.(events.ProviderCallCompletedData); ok {
		RecordProviderRequest(data.Provider, data.Model, statusSuccess, data.Duration.Seconds())
		RecordProviderTokens(data.Provider, data.Model, data.InputTokens, data.OutputTokens)
		RecordProviderCost(data.Provider, data.Model, data.Cost)
	}
}

func (l *MetricsListener) handleProviderCallFailed(event *events.Event) {
	if data, ok := event.Data.(events.ProviderCallFailedData); ok {
		RecordProviderRequest(data.Provider, data.Model, statusError, data.Duration.Seconds())
	}
}

// Listener returns an events.Listener function that can be registered with an EventBus.
func (l *MetricsListener) Listener() events.Listener {
	return l.Handle
}
