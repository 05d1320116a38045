// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	RowsIngested      prometheus.Counter
	SentinelsReplaced prometheus.Counter
	ParseFailures     *prometheus.CounterVec

	// Enrichment metrics
	EnrichmentRunsTotal  *prometheus.CounterVec
	EnrichmentDuration   prometheus.Histogram
	RecordsEnriched      prometheus.Counter
	OutliersFlagged      *prometheus.CounterVec
	UnresolvedLeaseYears prometheus.Counter

	// Filter metrics
	FiltersApplied     prometheus.Counter
	FilterRowsIn       prometheus.Counter
	FilterRowsOut      prometheus.Counter
	InvalidFilterSpecs prometheus.Counter

	// Cache metrics
	SnapshotCacheHits   prometheus.Counter
	SnapshotCacheMisses prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulEnrichment prometheus.Gauge
	SnapshotRows             prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "listing_lab"
	}

	return &Metrics{
		// Ingestion metrics
		RowsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_ingested_total",
			Help:      "Total number of raw listing rows ingested",
		}),
		SentinelsReplaced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "sentinels_replaced_total",
			Help:      "Total number of sentinel values replaced with absent",
		}),
		ParseFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "parse_failures_total",
			Help:      "Total number of field parse failures by kind",
		}, []string{"kind"}),

		// Enrichment metrics
		EnrichmentRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "runs_total",
			Help:      "Total number of enrichment runs by status",
		}, []string{"status"}),
		EnrichmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "duration_seconds",
			Help:      "Enrichment pass duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		RecordsEnriched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "records_enriched_total",
			Help:      "Total number of records enriched",
		}),
		OutliersFlagged: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "outliers_flagged_total",
			Help:      "Total number of outlier flags set by metric",
		}, []string{"metric"}),
		UnresolvedLeaseYears: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "unresolved_lease_years_total",
			Help:      "Total number of leasehold records with unresolved lease years",
		}),

		// Filter metrics
		FiltersApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "applied_total",
			Help:      "Total number of filter applications",
		}),
		FilterRowsIn: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "rows_in_total",
			Help:      "Total number of rows entering filter passes",
		}),
		FilterRowsOut: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "rows_out_total",
			Help:      "Total number of rows surviving filter passes",
		}),
		InvalidFilterSpecs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "invalid_specs_total",
			Help:      "Total number of rejected filter specifications",
		}),

		// Cache metrics
		SnapshotCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "snapshot_hits_total",
			Help:      "Total number of snapshot cache hits",
		}),
		SnapshotCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "snapshot_misses_total",
			Help:      "Total number of snapshot cache misses",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulEnrichment: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_enrichment_timestamp",
			Help:      "Unix timestamp of last successful enrichment run",
		}),
		SnapshotRows: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "snapshot_rows",
			Help:      "Number of rows in the most recent enriched snapshot",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEnrichmentRun records one enrichment pass outcome.
func RecordEnrichmentRun(status string) {
	DefaultMetrics.EnrichmentRunsTotal.WithLabelValues(status).Inc()
}

// RecordOutlierFlag increments the flagged counter for a metric.
func RecordOutlierFlag(metric string) {
	DefaultMetrics.OutliersFlagged.WithLabelValues(metric).Inc()
}
