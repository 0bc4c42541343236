// Package metrics exposes Prometheus metrics for the auction service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeAccepted      = "accepted"
	OutcomeInvalidWindow = "invalid_window"
	OutcomeInvalidAmount = "invalid_amount"
	OutcomeNotFound      = "not_found"
	OutcomeConflict      = "conflict"
	OutcomeError         = "error"
)

var (
	// BidsTotal counts finished bid attempts by outcome.
	BidsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_bids_total",
			Help: "Bid attempts by outcome",
		},
		[]string{"outcome"},
	)

	// LockAcquireDuration tracks time spent waiting for a bid lock, retries included.
	LockAcquireDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auction_lock_acquire_duration_seconds",
			Help:    "Time until a lock was acquired",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	LockAcquireTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_lock_acquire_timeouts_total",
			Help: "Lock acquisitions that exhausted their retry budget",
		},
	)

	// IndexMaintenanceFailures counts derived view writes that failed after the primary record was written.
	IndexMaintenanceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_index_maintenance_failures_total",
			Help: "Failed derived view writes by view",
		},
		[]string{"view"},
	)

	UniqueViews = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_unique_views_total",
			Help: "Product views counted as unique",
		},
	)

	ArchivedBids = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_archived_bids_total",
			Help: "Bid events processed by the archive consumer by status",
		},
		[]string{"status"},
	)
)
