package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mavuno/agrolink/internal/queue"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	QueueDepth       *prometheus.GaugeVec
	QueueProcessed   *prometheus.CounterVec
	QueueFailed      *prometheus.CounterVec
	Searches         *prometheus.CounterVec
	SearchResults    *prometheus.HistogramVec
	DiagnosisLatency prometheus.Histogram
}

// New registers all instruments with the given registerer. A custom
// registry keeps tests isolated from global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "offline_queue_depth",
			Help: "Current number of operations waiting in an offline queue.",
		}, []string{"queue"}),

		QueueProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offline_queue_processed_total",
			Help: "Total number of queued operations consumed by their processor.",
		}, []string{"queue"}),

		QueueFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offline_queue_failed_total",
			Help: "Total number of drain attempts stopped by a failed head item.",
		}, []string{"queue"}),

		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_searches_total",
			Help: "Marketplace lookups by kind (products, substitutes, search).",
		}, []string{"kind"}),

		SearchResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketplace_search_results",
			Help:    "Number of results returned per marketplace lookup.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}, []string{"kind"}),

		DiagnosisLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "diagnosis_model_seconds",
			Help:    "Latency of diagnosis model calls made while draining the queue.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.QueueDepth,
		m.QueueProcessed,
		m.QueueFailed,
		m.Searches,
		m.SearchResults,
		m.DiagnosisLatency,
	)

	return m
}

// QueueHooks returns the callbacks expected by queue.New for the named queue.
// Centralises the prometheus calls so the queue package stays import-free.
func (m *Metrics) QueueHooks(name string) queue.Hooks {
	return queue.Hooks{
		OnProcessed: func() { m.QueueProcessed.WithLabelValues(name).Inc() },
		OnFailed:    func() { m.QueueFailed.WithLabelValues(name).Inc() },
		OnDepth:     func(depth int) { m.QueueDepth.WithLabelValues(name).Set(float64(depth)) },
	}
}

// SearchHook returns the observation callback used by the marketplace service.
func (m *Metrics) SearchHook() func(kind string, results int) {
	return func(kind string, results int) {
		m.Searches.WithLabelValues(kind).Inc()
		m.SearchResults.WithLabelValues(kind).Observe(float64(results))
	}
}
