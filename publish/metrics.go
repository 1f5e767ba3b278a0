package publish

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "publish"

	resultSuccess   = "success"
	resultTransport = "transport"
	resultMismatch  = "mismatch"
	resultError     = "error"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Publication attempts, by result.
	Attempts metrics.Counter
	// Number of lines in the last successfully verified seed list.
	PublishedSeeds metrics.Gauge
	// Duration of a publication round in seconds.
	Duration metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Attempts: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "attempts_total",
			Help:      "Number of seed list publications, by result.",
		}, append(labels, "result")).With(labelsAndValues...),
		PublishedSeeds: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "published_seeds",
			Help:      "Number of seeds in the last verified seed list.",
		}, labels).With(labelsAndValues...),
		Duration: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "duration_seconds",
			Help:      "Time spent exporting, uploading and verifying the seed list.",
			Buckets:   stdprometheus.ExponentialBuckets(0.01, 4, 8),
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Attempts:       discard.NewCounter(),
		PublishedSeeds: discard.NewGauge(),
		Duration:       discard.NewHistogram(),
	}
}
