package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// forecast data service.
type Metrics struct {
	// Load/refresh metrics.
	LoadsTotal       *prometheus.CounterVec // labels: outcome={success,failure,rejected}
	LoadDuration     prometheus.Histogram
	LoadWarnings     prometheus.Gauge
	RecordsLoaded    prometheus.Gauge
	SyntheticSources prometheus.Gauge
	StoreReady       prometheus.Gauge

	// Query metrics.
	QueriesTotal    *prometheus.CounterVec   // labels: operation={country,grid,month}, outcome={success,not_found,invalid,unavailable}
	QueryDuration   *prometheus.HistogramVec // labels: operation
	QueryResultSize prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.LoadsTotal,
		m.LoadDuration,
		m.LoadWarnings,
		m.RecordsLoaded,
		m.SyntheticSources,
		m.StoreReady,
		m.QueriesTotal,
		m.QueryDuration,
		m.QueryResultSize,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		LoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forecast_api",
			Name:      "loads_total",
			Help:      "Data store load attempts by outcome.",
		}, []string{"outcome"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "forecast_api",
			Name:      "load_duration_seconds",
			Help:      "Duration of a complete data store load.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LoadWarnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forecast_api",
			Name:      "load_warnings",
			Help:      "Row-level warnings recorded during the most recent load.",
		}),
		RecordsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forecast_api",
			Name:      "records_loaded",
			Help:      "Forecast records in the active snapshot.",
		}),
		SyntheticSources: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forecast_api",
			Name:      "synthetic_sources",
			Help:      "Input sources replaced by synthetic data in the most recent load.",
		}),
		StoreReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forecast_api",
			Name:      "store_ready",
			Help:      "1 when the data store holds a snapshot, 0 before the first load.",
		}),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forecast_api",
			Name:      "queries_total",
			Help:      "Forecast queries by operation and outcome.",
		}, []string{"operation", "outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "forecast_api",
			Name:      "query_duration_seconds",
			Help:      "In-memory query resolution time by operation.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"operation"}),
		QueryResultSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "forecast_api",
			Name:      "query_result_size",
			Help:      "Records returned per successful query.",
			Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
	}
}
