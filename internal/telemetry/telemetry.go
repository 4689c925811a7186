// Package telemetry holds the prometheus instruments shared by the
// ingestion and aggregation pipeline. Instruments are created at package
// init so library code can observe them freely; Register exposes them on
// the default gatherer and is called once from main.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RowsIngested counts playback rows successfully loaded from CSV files.
	RowsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adboard",
		Name:      "rows_ingested_total",
		Help:      "Total number of playback log rows ingested.",
	})

	// RowsSkipped counts rows dropped for malformed cells.
	RowsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adboard",
		Name:      "rows_skipped_total",
		Help:      "Total number of playback log rows skipped as malformed.",
	})

	// FilesSkipped counts CSV files dropped by the log-and-skip policy.
	FilesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adboard",
		Name:      "files_skipped_total",
		Help:      "Total number of playback log files skipped as unreadable.",
	})

	// AggregationDuration observes full aggregation passes in seconds.
	AggregationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "adboard",
		Name:      "aggregation_seconds",
		Help:      "Duration of metrics aggregation passes in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	// ExportsTotal counts artifact exports by kind and outcome.
	ExportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adboard",
		Name:      "exports_total",
		Help:      "Total number of artifact exports.",
	}, []string{"kind", "outcome"})

	// HTTPRequests counts served HTTP requests.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adboard",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests served.",
	}, []string{"path", "method", "status"})
)

// Register attaches all instruments to the default prometheus registry.
func Register() {
	prometheus.MustRegister(
		RowsIngested,
		RowsSkipped,
		FilesSkipped,
		AggregationDuration,
		ExportsTotal,
		HTTPRequests,
	)
}
