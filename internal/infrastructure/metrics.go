package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics. Registered on the default registry and served by the
// /metrics endpoint.
var (
	IntegrationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brainage",
		Name:      "integration_runs_total",
		Help:      "Per-task integration runs, by task and outcome.",
	}, []string{"task", "outcome"})

	RecordsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "brainage",
		Name:      "canonical_records_updated_total",
		Help:      "Canonical feature record updates persisted.",
	})

	ScoringRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brainage",
		Name:      "scoring_requests_total",
		Help:      "Scoring requests, by outcome (scored, suppressed, error).",
	}, []string{"outcome"})

	ExternalToolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "brainage",
		Name:      "external_tool_duration_seconds",
		Help:      "Wall time of external tool invocations.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"tool"})
)
