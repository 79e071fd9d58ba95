// Package metrics exposes Prometheus metrics for optimizations and uploads.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names
const (
	MetricOptimizationsTotal      = "goobj_optimizations_total"
	MetricVerticesRemovedTotal    = "goobj_vertices_removed_total"
	MetricOptimizeDurationSeconds = "goobj_optimize_duration_seconds"
	MetricUploadsTotal            = "goobj_uploads_total"
)

// Optimization outcomes
const (
	OutcomeOptimized = "optimized"
	OutcomeFallback  = "fallback"
	OutcomeFailed    = "failed"
)

// Metrics owns a private registry so tests and multiple servers do not
// collide on the global one.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Metrics struct {
	registry *prometheus.Registry

	optimizationsTotal *prometheus.CounterVec
	verticesRemoved    prometheus.Counter
	optimizeDuration   prometheus.Histogram
	uploadsTotal       prometheus.Counter
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		optimizationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricOptimizationsTotal,
			Help: "Number of mesh optimizations by outcome.",
		}, []string{"outcome"}),
		verticesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricVerticesRemovedTotal,
			Help: "Total vertices removed by optimizations.",
		}),
		optimizeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricOptimizeDurationSeconds,
			Help:    "Time spent optimizing a mesh.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		uploadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricUploadsTotal,
			Help: "Number of stored model uploads.",
		}),
	}

	m.registry.MustRegister(
		m.optimizationsTotal,
		m.verticesRemoved,
		m.optimizeDuration,
		m.uploadsTotal,
	)
	return m
}

// ObserveOptimization records one reducer run
func (m *Metrics) ObserveOptimization(outcome string, removed int, elapsed time.Duration) {
	m.optimizationsTotal.WithLabelValues(outcome).Inc()
	if removed > 0 {
		m.verticesRemoved.Add(float64(removed))
	}
	m.optimizeDuration.Observe(elapsed.Seconds())
}

// IncUploads records a stored upload
func (m *Metrics) IncUploads() {
	m.uploadsTotal.Inc()
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
