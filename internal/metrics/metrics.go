package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channelpulse_pipeline_runs_total",
			Help: "Total number of analysis pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "channelpulse_stage_duration_seconds",
			Help: "Pipeline stage duration in seconds",
		},
		[]string{"stage"},
	)

	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channelpulse_provider_errors_total",
			Help: "Total number of degraded external provider calls",
		},
		[]string{"provider"},
	)

	RateLimitDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channelpulse_rate_limit_denials_total",
			Help: "Total number of requests denied by the rate limiter",
		},
		[]string{"domain"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channelpulse_cache_hits_total",
			Help: "Cache lookups by store and result",
		},
		[]string{"store", "result"},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "channelpulse_active_streams",
			Help: "Number of event streams currently open",
		},
	)
)
