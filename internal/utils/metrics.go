package utils

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	computations *prometheus.HistogramVec
	cache        *prometheus.CounterVec
	replacements *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailmetrics_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailmetrics_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		computations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailmetrics_engine_duration_seconds",
				Help:    "Time spent computing a report",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"report"},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailmetrics_cache_requests_total",
				Help: "Report cache lookups by result",
			},
			[]string{"result"},
		),
		replacements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailmetrics_dataset_replacements_total",
				Help: "Dataset loads by source",
			},
			[]string{"source"},
		),
	}
	m.reg.MustRegister(m.requests, m.latency, m.computations, m.cache, m.replacements)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Time returns a func that records the elapsed time for report when called.
func (m *Metrics) Time(report string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() { m.computations.WithLabelValues(report).Observe(time.Since(start).Seconds()) }
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.cache.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cache.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) DatasetReplaced(source string) {
	if m != nil {
		m.replacements.WithLabelValues(source).Inc()
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}
