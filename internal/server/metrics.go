package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "siteassist"

// Metrics are the assistant's Prometheus collectors.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	fallbacks     *prometheus.CounterVec
	streamEvents  *prometheus.CounterVec
	indexChunks   prometheus.Gauge
	buildDuration prometheus.Histogram
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "model_fallbacks_total",
			Help:      "Failed model calls that moved a ladder to its next rung.",
		}, []string{"stage", "model"}),
		streamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stream_events_total",
			Help:      "Server-sent answer events by kind.",
		}, []string{"event"}),
		indexChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "index_chunks",
			Help:      "Chunks in the live vector index.",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "index_build_duration_seconds",
			Help:      "Wall time of successful index builds.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	m.registry.MustRegister(
		m.requests, m.latency, m.fallbacks, m.streamEvents, m.indexChunks, m.buildDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Fallback returns a ladder failure hook counting failures for stage.
func (m *Metrics) Fallback(stage string) func(rung string, err error) {
	return func(rung string, _ error) {
		m.fallbacks.WithLabelValues(stage, rung).Inc()
	}
}

// SetIndexChunks records the live index size.
func (m *Metrics) SetIndexChunks(n int) {
	m.indexChunks.Set(float64(n))
}

func (m *Metrics) observeBuild(d time.Duration) {
	m.buildDuration.Observe(d.Seconds())
}

func (m *Metrics) countEvent(kind string) {
	m.streamEvents.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests and their latency by matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
