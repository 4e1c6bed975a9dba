package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricMessagesProcessed = "ingest_messages_processed_total"
	MetricMessagesError     = "ingest_messages_error_total"
	MetricUpserts           = "ingest_upserts_total"
	MetricStaleSkips        = "ingest_stale_version_skips_total"
	MetricIngestLatency     = "ingest_latency_seconds"
)

// Metrics contains Prometheus metrics for the feed consumer.
// All operations are thread-safe.
type Metrics struct {
	messagesProcessed prometheus.Counter
	messagesError     prometheus.Counter
	upserts           prometheus.Counter
	staleSkips        prometheus.Counter
	ingestLatency     prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		messagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricMessagesProcessed,
			Help: "Total number of feed messages processed",
		}),
		messagesError: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricMessagesError,
			Help: "Total number of feed messages that failed to process",
		}),
		upserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricUpserts,
			Help: "Total number of snapshot upserts applied",
		}),
		staleSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricStaleSkips,
			Help: "Total number of profile changes skipped as stale versions",
		}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricIngestLatency,
			Help:    "Histogram of feed message ingestion latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.messagesProcessed,
		m.messagesError,
		m.upserts,
		m.staleSkips,
		m.ingestLatency,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncMessagesProcessed increments the processed message counter.
func (m *Metrics) IncMessagesProcessed() {
	if m != nil {
		m.messagesProcessed.Inc()
	}
}

// IncMessagesError increments the message error counter.
func (m *Metrics) IncMessagesError() {
	if m != nil {
		m.messagesError.Inc()
	}
}

// IncUpserts increments the applied upsert counter.
func (m *Metrics) IncUpserts() {
	if m != nil {
		m.upserts.Inc()
	}
}

// IncStaleSkips increments the stale version skip counter.
func (m *Metrics) IncStaleSkips() {
	if m != nil {
		m.staleSkips.Inc()
	}
}

// ObserveIngestLatency records an ingestion latency sample.
func (m *Metrics) ObserveIngestLatency(seconds float64) {
	if m != nil {
		m.ingestLatency.Observe(seconds)
	}
}
