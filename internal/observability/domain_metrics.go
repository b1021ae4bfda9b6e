package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askora_http_requests_total",
			Help: "API requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askora_http_request_duration_seconds",
			Help:    "API request latency by route. Ask requests include the model round trip.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "path", "status"},
	)
	authRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askora_auth_rejections_total",
			Help: "API requests rejected by the key middleware, by reason.",
		},
		[]string{"reason"},
	)
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askora_translations_total",
			Help: "Natural-language translations by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	connectionAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askora_connection_attempts_total",
			Help: "Database session open attempts by dialect and outcome.",
		},
		[]string{"dialect", "outcome"},
	)
	statementExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askora_statement_executions_total",
			Help: "Executed statements by kind (read/write) and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	pipelineOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askora_pipeline_outcomes_total",
			Help: "Question pipeline runs by terminal state.",
		},
		[]string{"state"},
	)
	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askora_stage_duration_seconds",
			Help:    "Latency of pipeline stages (translate, connect, execute).",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
	openSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "askora_open_sessions",
			Help: "Database sessions currently open.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		authRejectionsTotal,
		translationsTotal,
		connectionAttemptsTotal,
		statementExecutionsTotal,
		pipelineOutcomesTotal,
		stageDurationSeconds,
		openSessions,
	)
}

// ObserveAuthRejection takes "missing_key" or "invalid_key".
func ObserveAuthRejection(reason string) {
	authRejectionsTotal.WithLabelValues(reason).Inc()
}

func ObserveTranslation(provider, outcome string) {
	translationsTotal.WithLabelValues(provider, outcome).Inc()
}

func ObserveConnectionAttempt(dialect, outcome string) {
	connectionAttemptsTotal.WithLabelValues(dialect, outcome).Inc()
}

func ObserveStatement(kind, outcome string) {
	statementExecutionsTotal.WithLabelValues(kind, outcome).Inc()
}

func ObservePipelineOutcome(state string) {
	pipelineOutcomesTotal.WithLabelValues(state).Inc()
}

func ObserveStage(stage string, elapsed time.Duration) {
	stageDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func SessionOpened() {
	openSessions.Inc()
}

func SessionClosed() {
	openSessions.Dec()
}
