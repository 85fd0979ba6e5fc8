// Package observability exposes the Prometheus collectors of the ride service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for RideOperations.
const (
	OutcomeOK         = "ok"
	OutcomeRejected   = "rejected"
	OutcomeNotFound   = "not_found"
	OutcomeContention = "contention"
	OutcomeError      = "error"
)

var (
	RideOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "ride_operations_total", Help: "Ride operations by kind and outcome"},
		[]string{"operation", "outcome"},
	)
	RideOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carpool",
			Name:      "ride_operation_duration_seconds",
			Help:      "Ride operation latency including compare-and-swap retries",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	VersionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "ride_version_conflicts_total", Help: "Compare-and-swap conflicts observed per operation"},
		[]string{"operation"},
	)
	EventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "carpool", Name: "ride_event_publish_failures_total", Help: "Ride events that could not be published"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carpool",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
