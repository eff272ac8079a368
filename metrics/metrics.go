// Package metrics exposes Prometheus instrumentation for the service:
// request counters, pipeline durations, cache effectiveness, and pool
// utilization gauges.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector behind one registry so the service
// can run multiple instances in tests without global state.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	TasksFinished   *prometheus.CounterVec
	ScrapeDuration  prometheus.Histogram
	CacheLookups    *prometheus.CounterVec
	RateLimitDenied *prometheus.CounterVec
	PoolActive      prometheus.Gauge
	PoolWaitMs      prometheus.Gauge
	BatchesFinished *prometheus.CounterVec
}

// New builds and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrapinium_http_requests_total",
			Help: "HTTP requests by method, route and status class.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scrapinium_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		TasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrapinium_tasks_finished_total",
			Help: "Tasks by terminal status.",
		}, []string{"status"}),
		ScrapeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scrapinium_scrape_duration_seconds",
			Help:    "End-to-end pipeline duration for completed scrapes.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrapinium_cache_lookups_total",
			Help: "Cache lookups by outcome (hit, miss).",
		}, []string{"outcome"}),
		RateLimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrapinium_ratelimit_denied_total",
			Help: "Denied requests by limiter reason.",
		}, []string{"reason"}),
		PoolActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scrapinium_pool_active_engines",
			Help: "Rendering engines currently checked out.",
		}),
		PoolWaitMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scrapinium_pool_avg_wait_ms",
			Help: "Average engine acquisition wait over the sample window.",
		}),
		BatchesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrapinium_batches_finished_total",
			Help: "Batches by terminal status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.HTTPRequests, m.HTTPDuration, m.TasksFinished, m.ScrapeDuration,
		m.CacheLookups, m.RateLimitDenied, m.PoolActive, m.PoolWaitMs,
		m.BatchesFinished,
	)
	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
