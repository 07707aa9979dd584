// Package prometheus provides Prometheus metrics for the turn engine.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "worldengine"

var (
	// turnsActive is a gauge of turns currently executing.
	turnsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "turns_active",
			Help:      "Number of turns currently executing",
		},
	)

	// turnDuration is a histogram of end-to-end turn execution duration.
	turnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Histogram of turn execution duration in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"status"}, // status: completed, cancelled
	)

	// turnsTotal is a counter of completed turns.
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of turns completed",
		},
		[]string{"status"},
	)

	// messagesAppendedTotal is a counter of conversation log entries appended.
	messagesAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_appended_total",
			Help:      "Total number of conversation log entries appended",
		},
		[]string{"role"},
	)

	// stateChangesTotal is a counter of state keys touched by applied change sets.
	stateChangesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_changes_total",
			Help:      "Total number of state keys touched by a rule or timer change set",
		},
	)

	// timersFiredTotal is a counter of timers that came due.
	timersFiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timers_fired_total",
			Help:      "Total number of timers that fired and dispatched a rule",
		},
		[]string{"rule_id"},
	)

	// inferenceErrorsTotal is a counter of inference calls that exhausted
	// their fallback chain without producing usable text.
	inferenceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_errors_total",
			Help:      "Total number of inference calls that failed",
		},
		[]string{"kind"},
	)

	// providerRequestDuration is a histogram of LLM provider API call duration.
	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of LLM provider API calls in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	// providerRequestsTotal is a counter of provider API calls.
	providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of provider API calls",
		},
		[]string{"provider", "model", "status"}, // status: success, error
	)

	// providerTokensTotal is a counter of tokens consumed by provider calls.
	providerTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_tokens_total",
			Help:      "Total tokens consumed by provider calls",
		},
		[]string{"provider", "model", "type"}, // type: input, output
	)

	// providerCostTotal is a counter of total cost from provider calls.
	providerCostTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_cost_total",
			Help:      "Total cost in USD from provider calls",
		},
		[]string{"provider", "model"},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		turnsActive,
		turnDuration,
		turnsTotal,
		messagesAppendedTotal,
		stateChangesTotal,
		timersFiredTotal,
		inferenceErrorsTotal,
		providerRequestDuration,
		providerRequestsTotal,
		providerTokensTotal,
		providerCostTotal,
	}
)

// RecordTurnStart records a turn beginning execution.
func RecordTurnStart() {
	turnsActive.Inc()
}

// RecordTurnEnd records a turn's completion status and duration.
func RecordTurnEnd(cancelled bool, durationSeconds float64) {
	turnsActive.Dec()
	status := "completed"
	if cancelled {
		status = "cancelled"
	}
	turnDuration.WithLabelValues(status).Observe(durationSeconds)
	turnsTotal.WithLabelValues(status).Inc()
}

// RecordMessageAppended records a conversation log entry.
func RecordMessageAppended(role string) {
	messagesAppendedTotal.WithLabelValues(role).Inc()
}

// RecordStateChange records the number of keys a rule or timer's change
// set touched.
func RecordStateChange(keyCount int) {
	if keyCount > 0 {
		stateChangesTotal.Add(float64(keyCount))
	}
}

// RecordTimerFired records a timer coming due and dispatching its rule.
func RecordTimerFired(ruleID string) {
	timersFiredTotal.WithLabelValues(ruleID).Inc()
}

// RecordInferenceError records an inference call that exhausted its
// fallback chain, labeled by its engineerr.Kind (or "unknown").
func RecordInferenceError(kind string) {
	inferenceErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordProviderRequest records a provider API call.
func RecordProviderRequest(provider, model, status string, durationSeconds float64) {
	providerRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	providerRequestsTotal.WithLabelValues(provider, model, status).Inc()
}

// RecordProviderTokens records token consumption.
func RecordProviderTokens(provider, model string, inputTokens, outputTokens int) {
	if inputTokens > 0 {
		providerTokensTotal.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		providerTokensTotal.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
}

// RecordProviderCost records cost from a provider call.
func RecordProviderCost(provider, model string, cost float64) {
	if cost > 0 {
		providerCostTotal.WithLabelValues(provider, model).Add(cost)
	}
}
