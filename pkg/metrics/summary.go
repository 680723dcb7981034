package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SummaryMetrics exports counters for the summary cache and generation path.
type SummaryMetrics struct {
	cacheRequests *prometheus.CounterVec
	generations   *prometheus.CounterVec
	duration      prometheus.Histogram
	httpRequests  *prometheus.CounterVec
}

// NewSummaryMetrics registers the collectors on reg. A nil registerer yields
// unregistered collectors, which is convenient in tests.
func NewSummaryMetrics(reg prometheus.Registerer) *SummaryMetrics {
	m := &SummaryMetrics{
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_summary_cache_requests_total",
			Help: "Summary lookups by cache result.",
		}, []string{"result"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_summary_generations_total",
			Help: "Summary generations by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "review_summary_generation_seconds",
			Help:    "Time spent generating and persisting a summary.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.cacheRequests, m.generations, m.duration, m.httpRequests)
	}
	return m
}

// ObserveCache records a cache hit or miss.
func (m *SummaryMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

// ObserveGeneration records the outcome and latency of one generation.
func (m *SummaryMetrics) ObserveGeneration(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.generations.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// ObserveRequest records one served HTTP request.
func (m *SummaryMetrics) ObserveRequest(method, route string, status int) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// CacheRequests exposes the cache counter vector for assertions.
func (m *SummaryMetrics) CacheRequests() *prometheus.CounterVec { return m.cacheRequests }

// Generations exposes the generation counter vector for assertions.
func (m *SummaryMetrics) Generations() *prometheus.CounterVec { return m.generations }

// HTTPRequests exposes the request counter vector for assertions.
func (m *SummaryMetrics) HTTPRequests() *prometheus.CounterVec { return m.httpRequests }
