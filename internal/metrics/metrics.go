package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Research run metrics
	RunsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepanswer_runs_started_total",
			Help: "Total number of research runs started",
		},
	)

	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepanswer_runs_completed_total",
			Help: "Total number of research runs completed",
		},
		[]string{"route", "status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepanswer_run_duration_seconds",
			Help:    "Research run duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60},
		},
		[]string{"route"},
	)

	LoopIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deepanswer_loop_iterations",
			Help:    "Number of plan-act iterations per run",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)

	// Action metrics
	ActionsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepanswer_actions_total",
			Help: "Total number of actions executed by type",
		},
		[]string{"type"},
	)

	ActionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepanswer_action_failures_total",
			Help: "Total number of actions that produced no new evidence due to errors",
		},
		[]string{"type"},
	)

	PassagesCollected = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deepanswer_passages_collected",
			Help:    "Number of passages held at loop exit",
			Buckets: []float64{0, 5, 10, 15, 20, 30, 50, 80},
		},
	)

	// Cache metrics
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepanswer_cache_requests_total",
			Help: "Cache lookups by namespace and result",
		},
		[]string{"namespace", "result"},
	)

	// Provider metrics
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepanswer_provider_calls_total",
			Help: "Outbound provider calls by kind and provider",
		},
		[]string{"kind", "provider"},
	)

	ProviderFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepanswer_provider_fallbacks_total",
			Help: "Times a provider failed and the next one in order was tried",
		},
		[]string{"kind"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepanswer_provider_latency_seconds",
			Help:    "Provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "provider"},
	)

	// Token accounting
	TokensUsed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deepanswer_tokens_used",
			Help:    "Model tokens consumed per run",
			Buckets: []float64{100, 500, 1000, 2500, 5000, 10000, 24000, 50000},
		},
	)
)
