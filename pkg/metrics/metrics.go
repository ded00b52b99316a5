// Package metrics exposes Prometheus instrumentation for the dashboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "roadpulse"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// import pipeline and the dashboard server.
type Metrics struct {
	DatasetsImported prometheus.Counter
	RegionsImported  prometheus.Counter
	ImportErrors     prometheus.Counter
	Comparisons      prometheus.Counter

	RenderDuration prometheus.Histogram

	CurrentRegions prometheus.Gauge
}

// New creates and registers all metrics with the default Prometheus registry.
func New() *Metrics {
	m := &Metrics{
		DatasetsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datasets_imported_total",
			Help:      "Total dataset snapshots imported.",
		}),
		RegionsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_imported_total",
			Help:      "Total region rows imported across all snapshots.",
		}),
		ImportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_errors_total",
			Help:      "Total imports rejected for parse or validation errors.",
		}),
		Comparisons: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparisons_total",
			Help:      "Total region-against-average comparisons served.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of a full dashboard view computation.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		CurrentRegions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_regions",
			Help:      "Region rows in the current dataset snapshot.",
		}),
	}

	prometheus.MustRegister(
		m.DatasetsImported,
		m.RegionsImported,
		m.ImportErrors,
		m.Comparisons,
		m.RenderDuration,
		m.CurrentRegions,
	)

	return m
}

// NewForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewForTesting() *Metrics {
	return &Metrics{
		DatasetsImported: prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "datasets_imported_total"}),
		RegionsImported:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "regions_imported_total"}),
		ImportErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "import_errors_total"}),
		Comparisons:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "comparisons_total"}),
		RenderDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "render_duration_seconds"}),
		CurrentRegions:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "current_regions"}),
	}
}
