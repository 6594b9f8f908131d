// Package metrics exposes Prometheus metrics for the component registrar.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registrar's Prometheus collectors.
type Metrics struct {
	Registered      *prometheus.CounterVec
	RegisterFailed  *prometheus.CounterVec
	StatusChanged   *prometheus.CounterVec
	RegisterLatency prometheus.Histogram
}

// New registers registrar metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Registered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trackmark_components_registered_total",
			Help: "Components registered, by component type.",
		}, []string{"component_type"}),
		RegisterFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trackmark_component_register_failures_total",
			Help: "Failed registration attempts, by error code.",
		}, []string{"code"}),
		StatusChanged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trackmark_component_status_changes_total",
			Help: "Status transitions, by target status.",
		}, []string{"status"}),
		RegisterLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trackmark_component_register_duration_seconds",
			Help:    "End-to-end registration latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
