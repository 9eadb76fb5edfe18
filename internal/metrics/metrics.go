// Package metrics exposes search and indexing counters through Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache names used as label values.
const (
	CacheUsers        = "users"
	CacheRepositories = "repositories"
	CacheDocuments    = "documents"
)

// Skip reasons used as label values.
const (
	SkipInvalid   = "invalid"
	SkipOversized = "oversized"
	SkipDeleted   = "deleted"
	SkipLargeDoc  = "large_document"
)

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	cacheLookups     *prometheus.CounterVec
	candidates       prometheus.Counter
	confirmed        prometheus.Counter
	skipped          *prometheus.CounterVec
	indexedDocuments prometheus.Counter
	queryDuration    prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spinach_cache_lookups_total",
			Help: "Entity cache lookups by cache and result (hit, miss, absent).",
		}, []string{"cache", "result"}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spinach_candidates_total",
			Help: "Candidate positions produced by compiled query cursors.",
		}),
		confirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spinach_confirmed_matches_total",
			Help: "Matches confirmed against document content.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spinach_skipped_documents_total",
			Help: "Documents skipped by cursors or the query driver, by reason.",
		}, []string{"reason"}),
		indexedDocuments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spinach_indexed_documents_total",
			Help: "Documents whose trigrams were written to the index.",
		}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spinach_query_duration_seconds",
			Help:    "Wall time of Search calls.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
	m.registry.MustRegister(
		m.cacheLookups,
		m.candidates,
		m.confirmed,
		m.skipped,
		m.indexedDocuments,
		m.queryDuration,
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// CacheHit records a cache hit.
func (m *Metrics) CacheHit(cache string) {
	if m != nil {
		m.cacheLookups.WithLabelValues(cache, "hit").Inc()
	}
}

// CacheMiss records a lookup that went to the backing store and found the entity.
func (m *Metrics) CacheMiss(cache string) {
	if m != nil {
		m.cacheLookups.WithLabelValues(cache, "miss").Inc()
	}
}

// CacheAbsent records a lookup for an entity that does not exist.
func (m *Metrics) CacheAbsent(cache string) {
	if m != nil {
		m.cacheLookups.WithLabelValues(cache, "absent").Inc()
	}
}

// Candidate records one candidate position.
func (m *Metrics) Candidate() {
	if m != nil {
		m.candidates.Inc()
	}
}

// Confirmed records n confirmed matches.
func (m *Metrics) Confirmed(n int) {
	if m != nil && n > 0 {
		m.confirmed.Add(float64(n))
	}
}

// Skipped records a skipped document.
func (m *Metrics) Skipped(reason string) {
	if m != nil {
		m.skipped.WithLabelValues(reason).Inc()
	}
}

// Indexed records one indexed document.
func (m *Metrics) Indexed() {
	if m != nil {
		m.indexedDocuments.Inc()
	}
}

// ObserveQuery records the duration of one query.
func (m *Metrics) ObserveQuery(d time.Duration) {
	if m != nil {
		m.queryDuration.Observe(d.Seconds())
	}
}
