// Package metrics exposes the prometheus instrumentation for the RAG
// pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	// Request metrics
	RequestDuration *prometheus.HistogramVec
	RequestCount    *prometheus.CounterVec

	// Provider metrics
	ProviderLatency *prometheus.HistogramVec
	ProviderErrors  *prometheus.CounterVec

	// Pipeline metrics
	RetrievalResults *prometheus.HistogramVec
	IngestedChunks   *prometheus.CounterVec
	BackendReloads   *prometheus.CounterVec

	registry *prometheus.Registry
}

func NewCollector() *Collector {
	c := &Collector{
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_provider_latency_seconds",
				Help:    "Backend provider call latency in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider", "operation"},
		),
		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_provider_errors_total",
				Help: "Total backend provider call failures",
			},
			[]string{"provider", "operation"},
		),
		RetrievalResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retrieval_results_count",
				Help:    "Documents returned per similarity search",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
			},
			[]string{"scoped"},
		),
		IngestedChunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingested_chunks_total",
				Help: "Total chunks processed during document ingestion",
			},
			[]string{"outcome"},
		),
		BackendReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_reloads_total",
				Help: "Total backend configuration reloads",
			},
			[]string{"outcome"},
		),
		registry: prometheus.NewRegistry(),
	}

	c.registry.MustRegister(
		c.RequestDuration,
		c.RequestCount,
		c.ProviderLatency,
		c.ProviderErrors,
		c.RetrievalResults,
		c.IngestedChunks,
		c.BackendReloads,
	)

	return c
}

// All observation helpers are nil-safe so instrumentation can be optional.

// ObserveRequest records one completed HTTP request.
func (c *Collector) ObserveRequest(method, endpoint, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.RequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
	c.RequestCount.WithLabelValues(method, endpoint, status).Inc()
}

// ObserveProviderCall records one embedding or completion call against the
// active backend.
func (c *Collector) ObserveProviderCall(provider, operation string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.ProviderLatency.WithLabelValues(provider, operation).Observe(duration.Seconds())
	if err != nil {
		c.ProviderErrors.WithLabelValues(provider, operation).Inc()
	}
}

// ObserveRetrieval records how many documents one similarity search returned.
func (c *Collector) ObserveRetrieval(scoped bool, results int) {
	if c == nil {
		return
	}
	c.RetrievalResults.WithLabelValues(strconv.FormatBool(scoped)).Observe(float64(results))
}

// CountIngestedChunk records one chunk ingestion outcome ("success" or
// "failure").
func (c *Collector) CountIngestedChunk(outcome string) {
	if c == nil {
		return
	}
	c.IngestedChunks.WithLabelValues(outcome).Inc()
}

// CountBackendReload records one reload outcome ("success" or "failure").
func (c *Collector) CountBackendReload(outcome string) {
	if c == nil {
		return
	}
	c.BackendReloads.WithLabelValues(outcome).Inc()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
