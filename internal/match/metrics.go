package match

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricPairsScoredTotal     = "match_pairs_scored_total"
	MetricScoreErrorsTotal     = "match_score_errors_total"
	MetricCacheHitsTotal       = "match_score_cache_hits_total"
	MetricCacheMissesTotal     = "match_score_cache_misses_total"
	MetricRankRequestsTotal    = "match_rank_requests_total"
	MetricSkippedCandidates    = "match_rank_skipped_candidates_total"
	MetricRankDurationSeconds  = "match_rank_duration_seconds"
	MetricScoreDurationSeconds = "match_score_duration_seconds"
)

// Metrics contains Prometheus metrics for the matching engine.
// All operations are thread-safe.
type Metrics struct {
	pairsScored   prometheus.Counter
	scoreErrors   prometheus.Counter
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	rankRequests  prometheus.Counter
	skipped       *prometheus.CounterVec
	rankDuration  prometheus.Histogram
	scoreDuration prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		pairsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPairsScoredTotal,
			Help: "Total number of pairwise compatibility computations (cache misses)",
		}),
		scoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricScoreErrorsTotal,
			Help: "Total number of pairwise scoring failures",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheHitsTotal,
			Help: "Total number of pair score cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheMissesTotal,
			Help: "Total number of pair score cache misses",
		}),
		rankRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRankRequestsTotal,
			Help: "Total number of candidate ranking requests",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSkippedCandidates,
			Help: "Candidates skipped during ranking, by reason",
		}, []string{"reason"}),
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRankDurationSeconds,
			Help:    "Histogram of candidate ranking duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}),
		scoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricScoreDurationSeconds,
			Help:    "Histogram of single pair scoring duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors, mainly for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.pairsScored,
		m.scoreErrors,
		m.cacheHits,
		m.cacheMisses,
		m.rankRequests,
		m.skipped,
		m.rankDuration,
		m.scoreDuration,
	}
}

// IncPairsScored increments the computed-pair counter.
func (m *Metrics) IncPairsScored() {
	if m != nil {
		m.pairsScored.Inc()
	}
}

// IncScoreErrors increments the scoring error counter.
func (m *Metrics) IncScoreErrors() {
	if m != nil {
		m.scoreErrors.Inc()
	}
}

// IncCacheHits increments the cache hit counter.
func (m *Metrics) IncCacheHits() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

// IncCacheMisses increments the cache miss counter.
func (m *Metrics) IncCacheMisses() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

// IncRankRequests increments the ranking request counter.
func (m *Metrics) IncRankRequests() {
	if m != nil {
		m.rankRequests.Inc()
	}
}

// IncSkipped increments the skipped-candidate counter for a reason.
func (m *Metrics) IncSkipped(reason string) {
	if m != nil {
		m.skipped.WithLabelValues(reason).Inc()
	}
}

// ObserveRankDuration records a ranking duration sample.
func (m *Metrics) ObserveRankDuration(seconds float64) {
	if m != nil {
		m.rankDuration.Observe(seconds)
	}
}

// ObserveScoreDuration records a pair scoring duration sample.
func (m *Metrics) ObserveScoreDuration(seconds float64) {
	if m != nil {
		m.scoreDuration.Observe(seconds)
	}
}
