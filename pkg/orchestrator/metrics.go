package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace  = "wellnesswingman"
	pipelineSubsystem = "pipeline"
)

// Metrics holds the pipeline's prometheus collectors.
type Metrics struct {
	EntriesProcessed    *prometheus.CounterVec
	ProviderLatency     *prometheus.HistogramVec
	TokensTotal         *prometheus.CounterVec
	StatusEventsDropped prometheus.Counter
	InFlight            prometheus.Gauge
	RecoveredEntries    *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. A nil reg leaves them
// unregistered, which tests use to avoid global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EntriesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "entries_processed_total",
				Help:      "Entries that reached a status after analysis, by outcome",
			},
			[]string{"outcome"},
		),
		ProviderLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "provider_call_duration_seconds",
				Help:      "Latency of LLM provider calls",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"provider", "operation"},
		),
		TokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "tokens_total",
				Help:      "Tokens reported by providers",
			},
			[]string{"provider", "direction"},
		),
		StatusEventsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "status_events_dropped_total",
				Help:      "Status change events dropped because a subscriber was full",
			},
		),
		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "entries_in_flight",
				Help:      "Entries currently being analysed",
			},
		),
		RecoveredEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "recovered_entries_total",
				Help:      "Entries touched by startup recovery, by action",
			},
			[]string{"action"},
		),
	}
}
