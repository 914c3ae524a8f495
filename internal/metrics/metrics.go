// Package metrics exposes prometheus counters and histograms.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can build several instances.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	CatalogSearches *prometheus.CounterVec
	CascadeRuns     *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
	WSClients       prometheus.GaugeFunc
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardpool",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cardpool",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		CatalogSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardpool",
			Name:      "catalog_searches_total",
			Help:      "Card catalog searches by outcome.",
		}, []string{"outcome"}),
		CascadeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardpool",
			Name:      "cascade_runs_total",
			Help:      "Cascade delete runs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardpool",
			Name:      "events_published_total",
			Help:      "Domain events by routing key and outcome.",
		}, []string{"key", "outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.CatalogSearches,
		m.CascadeRuns,
		m.EventsPublished,
	)
	return m
}

// RegisterWSClients exposes the live websocket client count.
func (m *Metrics) RegisterWSClients(count func() int) {
	if m == nil {
		return
	}
	m.WSClients = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "cardpool",
		Name:      "ws_clients",
		Help:      "Connected websocket clients.",
	}, func() float64 { return float64(count()) })
	m.Registry.MustRegister(m.WSClients)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// The helpers below are safe to call on a nil *Metrics.

func (m *Metrics) CatalogSearch(outcome string) {
	if m == nil {
		return
	}
	m.CatalogSearches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CascadeRun(kind, outcome string) {
	if m == nil {
		return
	}
	m.CascadeRuns.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) EventPublished(key, outcome string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(key, outcome).Inc()
}
