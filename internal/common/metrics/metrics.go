// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_requests_total",
			Help: "Total number of dispatch requests by mode and outcome",
		},
		[]string{"mode", "status"},
	)

	DeliveriesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deliveries_persisted_total",
			Help: "Total number of delivery records written by status",
		},
		[]string{"status"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dispatch_duration_seconds",
			Help: "Duration of dispatch request processing in seconds",
		},
		[]string{"mode"},
	)

	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_retry_attempts_total",
			Help: "Total number of delivery retry attempts by outcome",
		},
		[]string{"outcome"},
	)
)
