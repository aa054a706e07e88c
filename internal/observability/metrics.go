package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges shared by
// the ETL pipeline and the dashboard.
type Metrics struct {
	CitiesFetched      prometheus.Counter
	CitiesSkipped      prometheus.Counter
	FactRowsLoaded     prometheus.Counter
	DimRowsInserted    prometheus.Counter
	UnresolvedFactKeys prometheus.Counter
	PipelineRunning    prometheus.Gauge

	// Per-stage latency, labeled stage={extract,transform,archive,load}.
	StageDuration *prometheus.HistogramVec

	// Dashboard read path.
	QueryDuration prometheus.Histogram
	CacheLookups  *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CitiesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_etl",
			Name:      "cities_fetched_total",
			Help:      "Cities successfully fetched from the pollution API.",
		}),
		CitiesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_etl",
			Name:      "cities_skipped_total",
			Help:      "Cities skipped due to fetch failures.",
		}),
		FactRowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_etl",
			Name:      "fact_rows_loaded_total",
			Help:      "Fact rows appended to fact_air_pollution.",
		}),
		DimRowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_etl",
			Name:      "dim_rows_inserted_total",
			Help:      "New city rows inserted into dim_city.",
		}),
		UnresolvedFactKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_etl",
			Name:      "unresolved_fact_keys_total",
			Help:      "Fact rows loaded with a NULL city_id because the dimension join missed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "air_etl",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "air_etl",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "air_dashboard",
			Name:      "query_duration_seconds",
			Help:      "Duration of the fact-join-dimension dashboard query.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "air_dashboard",
			Name:      "cache_lookups_total",
			Help:      "Dashboard data cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.CitiesFetched,
		m.CitiesSkipped,
		m.FactRowsLoaded,
		m.DimRowsInserted,
		m.UnresolvedFactKeys,
		m.PipelineRunning,
		m.StageDuration,
		m.QueryDuration,
		m.CacheLookups,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can construct pipelines repeatedly without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CitiesFetched:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "air_etl", Name: "cities_fetched_total"}),
		CitiesSkipped:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "air_etl", Name: "cities_skipped_total"}),
		FactRowsLoaded:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "air_etl", Name: "fact_rows_loaded_total"}),
		DimRowsInserted:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "air_etl", Name: "dim_rows_inserted_total"}),
		UnresolvedFactKeys: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "air_etl", Name: "unresolved_fact_keys_total"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "air_etl", Name: "pipeline_running"}),
		StageDuration:      prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "air_etl", Name: "stage_duration_seconds"}, []string{"stage"}),
		QueryDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "air_dashboard", Name: "query_duration_seconds"}),
		CacheLookups:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "air_dashboard", Name: "cache_lookups_total"}, []string{"result"}),
	}
}
