package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the quality scoring engine.
type Metrics struct {
	Verdicts     *prometheus.CounterVec
	OverallScore prometheus.Histogram
}

// New creates and registers scoring metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trackmark_quality_verdicts_total",
			Help: "Quality verdicts by outcome",
		}, []string{"verdict"}),
		OverallScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trackmark_quality_overall_score",
			Help:    "Distribution of overall quality scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}
