// Package metrics exposes Prometheus metrics for the insights service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the service's collectors. A nil *Manager is valid and records
// nothing.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	analysisDuration    *prometheus.HistogramVec
	responsesFetched    prometheus.Counter
	responsesSubmitted  prometheus.Counter
}

// NewManager builds a Manager on its own registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "synap",
		subsystem:        "insights",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.enabled {
		m.initializeMetrics()
	}
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"route", "code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   m.histogramBuckets,
	}, []string{"route"})

	m.analysisDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analysis_duration_seconds",
		Help:      "Time spent computing a report, by report kind",
		Buckets:   m.histogramBuckets,
	}, []string{"kind"})

	m.responsesFetched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "responses_fetched_total",
		Help:      "Response rows read from the store for analysis",
	})

	m.responsesSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "responses_submitted_total",
		Help:      "Response rows accepted from respondents",
	})
}

func (m *Manager) active() bool { return m != nil && m.enabled }

// ObserveHTTPRequest records one served request.
func (m *Manager) ObserveHTTPRequest(route string, code int, d time.Duration) {
	if !m.active() {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveAnalysis records how long a report of the given kind took.
func (m *Manager) ObserveAnalysis(kind string, d time.Duration) {
	if !m.active() {
		return
	}
	m.analysisDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// AddResponsesFetched counts rows read for analysis.
func (m *Manager) AddResponsesFetched(n int) {
	if !m.active() || n <= 0 {
		return
	}
	m.responsesFetched.Add(float64(n))
}

// AddResponsesSubmitted counts rows accepted from respondents.
func (m *Manager) AddResponsesSubmitted(n int) {
	if !m.active() || n <= 0 {
		return
	}
	m.responsesSubmitted.Add(float64(n))
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
