// Package metrics provides Prometheus metrics for the EmoGo data service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExportsTotal tracks CSV export requests by outcome
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emogo",
			Subsystem: "export",
			Name:      "requests_total",
			Help:      "Total number of CSV export requests by outcome",
		},
		[]string{"outcome"},
	)

	// ExportDuration tracks end-to-end CSV export duration in seconds
	ExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "emogo",
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Duration of CSV export requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// RowsExported tracks unified rows written to CSV bodies
	RowsExported = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "emogo",
			Subsystem: "export",
			Name:      "rows_total",
			Help:      "Total number of unified rows written to CSV exports",
		},
	)

	// KeyCollisions tracks same-source session key collisions resolved last-write-wins
	KeyCollisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emogo",
			Subsystem: "reconcile",
			Name:      "key_collisions_total",
			Help:      "Total number of same-source session key collisions resolved last-write-wins",
		},
		[]string{"source"},
	)

	// ValidationWarnings tracks out-of-range values retained in output
	ValidationWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emogo",
			Subsystem: "reconcile",
			Name:      "validation_warnings_total",
			Help:      "Total number of out-of-range values retained in reconciled output",
		},
		[]string{"field"},
	)

	// ListingRequestsTotal tracks listing page requests by outcome
	ListingRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emogo",
			Subsystem: "listing",
			Name:      "requests_total",
			Help:      "Total number of data listing page requests by outcome",
		},
		[]string{"outcome"},
	)
)
