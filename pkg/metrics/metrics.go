// Package metrics exposes the gateway's Prometheus instrumentation. All
// collectors live on a private registry so tests can instantiate the set
// without clashing on the global default.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's collectors.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	AdmissionDenied *prometheus.CounterVec
	UpstreamErrors  *prometheus.CounterVec
	StreamChunks    prometheus.Counter
}

// New creates the collector set. liveBuckets, when non-nil, is sampled on
// scrape for the rate limiter bucket gauge.
func New(liveBuckets func() int) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelgate_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		AdmissionDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelgate_admission_denied_total",
			Help: "Requests denied by the rate limiter, by bucket class.",
		}, []string{"class"}),
		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelgate_upstream_errors_total",
			Help: "Upstream provider failures by kind.",
		}, []string{"kind"}),
		StreamChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modelgate_stream_chunks_total",
			Help: "Chunks relayed to streaming clients.",
		}),
	}
	registry.MustRegister(m.Requests, m.AdmissionDenied, m.UpstreamErrors, m.StreamChunks)

	if liveBuckets != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "modelgate_ratelimit_buckets",
			Help: "Live token buckets across all classes.",
		}, func() float64 {
			return float64(liveBuckets())
		}))
	}

	return m
}

// Handler returns the scrape endpoint handler for this collector set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
