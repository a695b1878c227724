// Package metrics exposes Prometheus instrumentation for the LLM gateways
// and voice session manager.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codejitsu_llm_request_duration_seconds",
			Help:    "LLM request duration in seconds by mode and outcome",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"mode", "status"},
	)

	llmRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codejitsu_llm_retries_total",
			Help: "Total LLM call retries by mode",
		},
		[]string{"mode"},
	)

	fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codejitsu_fallback_total",
			Help: "Fallback problem generations by reason",
		},
		[]string{"reason"}, // "overloaded" or "parse_failure"
	)

	extractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codejitsu_extraction_total",
			Help: "Structured extraction attempts by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: "json"/"svg", outcome: "hit"/"miss"
	)

	voiceTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codejitsu_voice_transitions_total",
			Help: "Voice session state transitions",
		},
		[]string{"from", "to"},
	)
)

// ObserveLLMRequest records one completed (or failed) LLM call.
func ObserveLLMRequest(mode, status string, d time.Duration) {
	llmRequestDuration.WithLabelValues(mode, status).Observe(d.Seconds())
}

// IncRetry records one retry of an LLM call.
func IncRetry(mode string) {
	llmRetries.WithLabelValues(mode).Inc()
}

// IncFallback records one fallback problem generation.
func IncFallback(reason string) {
	fallbacks.WithLabelValues(reason).Inc()
}

// IncExtraction records one extraction pipeline run.
func IncExtraction(kind string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	extractions.WithLabelValues(kind, outcome).Inc()
}

// IncVoiceTransition records one voice FSM transition.
func IncVoiceTransition(from, to string) {
	voiceTransitions.WithLabelValues(from, to).Inc()
}
