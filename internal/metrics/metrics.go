// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values.
const (
	OutcomeSuccess    = "success"
	OutcomeInvalid    = "invalid"
	OutcomeStoreError = "store_error"

	SourceCached    = "cached"
	SourceGenerated = "generated"
	SourcePreview   = "preview"
	SourceFailed    = "failed"
)

var (
	// Submissions counts submit-quiz calls by outcome.
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formation_quiz_submissions_total",
			Help: "Total number of quiz submissions",
		},
		[]string{"outcome"}, // success/invalid/store_error
	)

	// Analyses counts analysis requests by how they were served.
	Analyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formation_quiz_analyses_total",
			Help: "Total number of quiz analyses",
		},
		[]string{"source"}, // cached/generated/preview/failed
	)

	// GenerationDuration observes feedback generator latency.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formation_feedback_generation_duration_seconds",
			Help:    "Time spent waiting for the feedback generator",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"status"}, // success/failure
	)

	// PersistConflicts counts analyses discarded because another writer
	// stored one first.
	PersistConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "formation_analysis_persist_conflicts_total",
			Help: "Total number of analyses discarded after losing a concurrent write",
		},
	)

	// LLMRequests counts feedback generator calls, one per attempt.
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formation_llm_requests_total",
			Help: "Total number of LLM requests",
		},
		[]string{"provider", "purpose", "status"},
	)

	// LLMTokens counts tokens consumed by the feedback generator.
	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formation_llm_tokens_total",
			Help: "Total number of LLM tokens",
		},
		[]string{"provider", "direction"}, // input/output
	)

	// LLMRetries counts retried generator attempts by error kind.
	LLMRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formation_llm_retries_total",
			Help: "Total number of retried LLM requests",
		},
		[]string{"reason"}, // rate_limit/unavailable/invalid
	)

	// HTTPRequests counts handled HTTP requests.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formation_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)
