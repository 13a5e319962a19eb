package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "noc_kpi"

// Metrics holds the Prometheus counters, histograms, and gauges for the KPI engine.
type Metrics struct {
	RowsIngested     prometheus.Counter
	RowsRejected     prometheus.Counter
	Analyses         prometheus.Counter
	AnalysisErrors   prometheus.Counter
	AnalysisDuration prometheus.Histogram
	MajorAlarms      prometheus.Gauge
	AlarmsPublished  prometheus.Counter
	PublishErrors    prometheus.Counter
	PublishBatchSize prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all engine metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsIngested,
		m.RowsRejected,
		m.Analyses,
		m.AnalysisErrors,
		m.AnalysisDuration,
		m.MajorAlarms,
		m.AlarmsPublished,
		m.PublishErrors,
		m.PublishBatchSize,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_ingested_total",
			Help:      "Total KPI rows accepted from uploaded or source CSV files.",
		}),
		RowsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rejected_total",
			Help:      "Total KPI rows rejected during ingestion.",
		}),
		Analyses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total completed congestion analyses.",
		}),
		AnalysisErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_errors_total",
			Help:      "Total analyses that failed on bad input or parameters.",
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of a complete ingest-analyze-publish cycle.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		MajorAlarms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "major_alarms",
			Help:      "Major alarm rows found by the most recent analysis.",
		}),
		AlarmsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarms_published_total",
			Help:      "Total major alarm messages written to the alarm topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total failed alarm batch write attempts.",
		}),
		PublishBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_batch_size",
			Help:      "Number of alarms per published batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when geo enrichment is enabled, 0 otherwise.",
		}),
	}
}
