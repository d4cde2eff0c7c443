// Package metrics defines the Prometheus collectors for search, embedding,
// session and HTTP activity. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector registered by the server.
type Metrics struct {
	SearchRequestsTotal    *prometheus.CounterVec
	SearchDuration         prometheus.Histogram
	SearchDegradedTotal    prometheus.Counter
	SearchCandidates       prometheus.Histogram
	EmbeddingRequestsTotal *prometheus.CounterVec
	EmbeddingDuration      *prometheus.HistogramVec
	EmbeddingCacheTotal    *prometheus.CounterVec
	SessionTransitions     *prometheus.CounterVec
	SessionInFlight        prometheus.Gauge
	FramesEmittedTotal     *prometheus.CounterVec
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
}

// New creates the collectors under namespace and registers them with reg.
// A nil reg leaves them unregistered, which suits tests.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SearchRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search requests by outcome",
		}, []string{"outcome"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SearchDegradedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_degraded_total",
			Help:      "Searches answered lexically because embeddings were unavailable",
		}),
		SearchCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_candidates",
			Help:      "Candidate set size per search",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		EmbeddingRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		}, []string{"provider", "status"}),
		EmbeddingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		EmbeddingCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		}, []string{"result"}),
		SessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session lifecycle transitions",
		}, []string{"from", "to"}),
		SessionInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_inflight_requests",
			Help:      "Search requests currently being processed",
		}),
		FramesEmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_emitted_total",
			Help:      "Protocol frames written to the transport",
		}, []string{"kind"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route", "status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SearchRequestsTotal,
			m.SearchDuration,
			m.SearchDegradedTotal,
			m.SearchCandidates,
			m.EmbeddingRequestsTotal,
			m.EmbeddingDuration,
			m.EmbeddingCacheTotal,
			m.SessionTransitions,
			m.SessionInFlight,
			m.FramesEmittedTotal,
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
		)
	}
	return m
}

// ObserveSearch records one finished search.
func (m *Metrics) ObserveSearch(outcome string, d time.Duration, candidates int) {
	if m == nil {
		return
	}
	m.SearchRequestsTotal.WithLabelValues(outcome).Inc()
	m.SearchDuration.Observe(d.Seconds())
	m.SearchCandidates.Observe(float64(candidates))
}

// SearchDegraded counts a lexical-only answer.
func (m *Metrics) SearchDegraded() {
	if m == nil {
		return
	}
	m.SearchDegradedTotal.Inc()
}

// ObserveEmbedding records one provider call.
func (m *Metrics) ObserveEmbedding(provider, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.EmbeddingRequestsTotal.WithLabelValues(provider, status).Inc()
	if status == "success" {
		m.EmbeddingDuration.WithLabelValues(provider).Observe(d.Seconds())
	}
}

// EmbeddingCache records a cache lookup.
func (m *Metrics) EmbeddingCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.EmbeddingCacheTotal.WithLabelValues(result).Inc()
}

// SessionTransition records a lifecycle transition.
func (m *Metrics) SessionTransition(from, to string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(from, to).Inc()
}

// InFlight adjusts the in-flight search gauge by delta.
func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.SessionInFlight.Add(delta)
}

// FrameEmitted counts a frame of the given kind (partial, result, error).
func (m *Metrics) FrameEmitted(kind string) {
	if m == nil {
		return
	}
	m.FramesEmittedTotal.WithLabelValues(kind).Inc()
}
