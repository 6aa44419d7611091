package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the batch pipeline.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Fetch metrics.
	Downloads     *prometheus.CounterVec // labels: outcome={success,error}
	DownloadBytes prometheus.Counter

	// Table metrics.
	FilesParsed *prometheus.CounterVec // labels: outcome={parsed,skipped}
	RowsUnified prometheus.Gauge
	RowsCleaned prometheus.Gauge
	RowsDropped prometheus.Gauge

	// Timing.
	StageDuration       *prometheus.HistogramVec // labels: stage={fetch,unify,clean,load,aggregate,report}
	AggregationDuration *prometheus.HistogramVec // labels: aggregation={monthly,annual,extremes,seasonal,trend,overview}

	ChartsRendered prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a batch run is in progress, 0 otherwise.",
		}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Station file downloads by outcome.",
		}, []string{"outcome"}),
		DownloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes written to disk by successful downloads.",
		}),
		FilesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_parsed_total",
			Help:      "Station files read during unification by outcome.",
		}, []string{"outcome"}),
		RowsUnified: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_unified",
			Help:      "Rows in the most recent unified table.",
		}),
		RowsCleaned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_cleaned",
			Help:      "Rows in the most recent cleaned table.",
		}),
		RowsDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_dropped",
			Help:      "Rows removed by the most recent cleaning pass.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
		}, []string{"stage"}),
		AggregationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Wall time of each aggregation.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"aggregation"}),
		ChartsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_rendered_total",
			Help:      "PNG charts written to the results directory.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRunning,
		m.Downloads,
		m.DownloadBytes,
		m.FilesParsed,
		m.RowsUnified,
		m.RowsCleaned,
		m.RowsDropped,
		m.StageDuration,
		m.AggregationDuration,
		m.ChartsRendered,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
