package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting application
// metrics around the session emulation pipeline.
type Metrics struct {
	// ExecutionCounter counts executions by model and terminal outcome.
	// Labels: model, outcome (completed|cached|timed_out|errored)
	ExecutionCounter *prometheus.CounterVec

	// ProcessDuration measures external process runtime in seconds.
	// Labels: operation (quick|text|code|file|system or empty)
	// Buckets: 0.1s, 0.5s, 1s, 5s, 10s, 30s, 60s, 120s
	ProcessDuration *prometheus.HistogramVec

	// TokensEstimated tracks estimated token consumption.
	// Labels: model, type (prompt|completion)
	TokensEstimated *prometheus.CounterVec

	// CacheLookupCounter counts response cache lookups.
	// Labels: result (hit|miss|expired)
	CacheLookupCounter *prometheus.CounterVec

	// ActiveSessions is a gauge tracking current live sessions.
	ActiveSessions prometheus.Gauge

	// ForkCounter counts session forks.
	ForkCounter prometheus.Counter

	// CheckpointCounter counts checkpoint activity.
	// Labels: operation (create|restore)
	CheckpointCounter *prometheus.CounterVec

	// EscalationCounter counts timeout signal deliveries.
	// Labels: signal (term|kill)
	EscalationCounter *prometheus.CounterVec

	// ErrorCounter tracks errors by component and error type.
	// Labels: component (executor|runner|store), error_type
	ErrorCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the default
// Prometheus registry. Call once at application startup.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates and registers all metrics with the given
// registerer. Tests use this with a fresh registry.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ExecutionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replay_executions_total",
				Help: "Total number of executions by model and outcome",
			},
			[]string{"model", "outcome"},
		),

		ProcessDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "replay_process_duration_seconds",
				Help:    "Duration of external tool processes in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),

		TokensEstimated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replay_tokens_estimated_total",
				Help: "Estimated tokens by model and type",
			},
			[]string{"model", "type"},
		),

		CacheLookupCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replay_cache_lookups_total",
				Help: "Total number of response cache lookups by result",
			},
			[]string{"result"},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "replay_active_sessions",
				Help: "Current number of active sessions",
			},
		),

		ForkCounter: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "replay_forks_total",
				Help: "Total number of session forks",
			},
		),

		CheckpointCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replay_checkpoints_total",
				Help: "Total number of checkpoint operations",
			},
			[]string{"operation"},
		),

		EscalationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replay_timeout_escalations_total",
				Help: "Total number of timeout signals sent by stage",
			},
			[]string{"signal"},
		),

		ErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replay_errors_total",
				Help: "Total number of errors by component and error type",
			},
			[]string{"component", "error_type"},
		),
	}
}

// RecordExecution records one finished execution. Process runtime is
// recorded separately via RecordProcessRun.
func (m *Metrics) RecordExecution(model, outcome string, promptTokens, completionTokens int) {
	m.ExecutionCounter.WithLabelValues(model, outcome).Inc()
	if promptTokens > 0 {
		m.TokensEstimated.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.TokensEstimated.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// RecordProcessRun observes one external process runtime.
func (m *Metrics) RecordProcessRun(operation string, durationSeconds float64) {
	m.ProcessDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordCacheLookup counts one cache lookup result.
func (m *Metrics) RecordCacheLookup(result string) {
	m.CacheLookupCounter.WithLabelValues(result).Inc()
}

// SessionStarted increments the active sessions gauge.
func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

// SessionEnded decrements the active sessions gauge.
func (m *Metrics) SessionEnded() {
	m.ActiveSessions.Dec()
}

// RecordFork counts one session fork.
func (m *Metrics) RecordFork() {
	m.ForkCounter.Inc()
}

// RecordCheckpoint counts one checkpoint operation.
func (m *Metrics) RecordCheckpoint(operation string) {
	m.CheckpointCounter.WithLabelValues(operation).Inc()
}

// RecordEscalation counts one timeout signal delivery.
func (m *Metrics) RecordEscalation(signal string) {
	m.EscalationCounter.WithLabelValues(signal).Inc()
}

// RecordError increments the error counter for a component and type.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}
