package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the fusion service.
type Metrics struct {
	RefreshCycles   *prometheus.CounterVec   // labels: airport
	RefreshDuration *prometheus.HistogramVec // labels: airport

	// Source metrics.
	ProviderFetches *prometheus.CounterVec // labels: source, outcome={success,error,invalid}
	SourcesUsed     *prometheus.GaugeVec   // labels: airport

	// Fusion outcome metrics.
	FieldsUnavailable *prometheus.CounterVec // labels: airport, field

	// Downstream publishing.
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter

	SchedulerRunning prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RefreshCycles,
		m.RefreshDuration,
		m.ProviderFetches,
		m.SourcesUsed,
		m.FieldsUnavailable,
		m.SnapshotsPublished,
		m.PublishErrors,
		m.SchedulerRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RefreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airport_weather",
			Name:      "refresh_cycles_total",
			Help:      "Completed fusion cycles per airport.",
		}, []string{"airport"}),
		RefreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "airport_weather",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a fetch-and-fuse cycle, including source fetches.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"airport"}),
		ProviderFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airport_weather",
			Name:      "provider_fetches_total",
			Help:      "Source fetch attempts by source id and outcome.",
		}, []string{"source", "outcome"}),
		SourcesUsed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "airport_weather",
			Name:      "sources_used",
			Help:      "Distinct sources that won at least one field in the latest cycle.",
		}, []string{"airport"}),
		FieldsUnavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airport_weather",
			Name:      "fields_unavailable_total",
			Help:      "Fused fields that resolved to unavailable, by airport and field.",
		}, []string{"airport", "field"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airport_weather",
			Name:      "snapshots_published_total",
			Help:      "Fused snapshots written to the downstream topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airport_weather",
			Name:      "publish_errors_total",
			Help:      "Failed writes to the downstream topic.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airport_weather",
			Name:      "scheduler_running",
			Help:      "1 when the refresh scheduler is active, 0 when stopped.",
		}),
	}
}
