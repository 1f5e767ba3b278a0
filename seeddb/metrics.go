package seeddb

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "seeddb"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of peers in the Connected table.
	Connected metrics.Gauge
	// Number of peers in the Disconnected table.
	Disconnected metrics.Gauge
	// Number of peers in the Potential table.
	Potential metrics.Gauge
	// Number of times a table was dropped after a storage fault.
	TableResets metrics.Counter
	// Lookup cache hits and misses, by cache.
	CacheHits   metrics.Counter
	CacheMisses metrics.Counter
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
		Connected: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "connected",
			Help:      "Number of peers in the Connected table.",
		}, labels).With(labelsAndValues...),
		Disconnected: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "disconnected",
			Help:      "Number of peers in the Disconnected table.",
		}, labels).With(labelsAndValues...),
		Potential: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "potential",
			Help:      "Number of peers in the Potential table.",
		}, labels).With(labelsAndValues...),
		TableResets: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "table_resets_total",
			Help:      "Number of times a table was dropped after a storage fault.",
		}, append(labels, "table")).With(labelsAndValues...),
		CacheHits: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "cache_hits_total",
			Help:      "Number of lookup cache hits.",
		}, append(labels, "cache")).With(labelsAndValues...),
		CacheMisses: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "cache_misses_total",
			Help:      "Number of lookup cache misses.",
		}, append(labels, "cache")).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Connected:    discard.NewGauge(),
		Disconnected: discard.NewGauge(),
		Potential:    discard.NewGauge(),
		TableResets:  discard.NewCounter(),
		CacheHits:    discard.NewCounter(),
		CacheMisses:  discard.NewCounter(),
	}
}
