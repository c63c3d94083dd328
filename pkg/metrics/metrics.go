package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventra_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// StaffChecks counts staff-only route evaluations (allow|deny).
	StaffChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventra_staff_checks_total",
			Help: "Total number of staff-only access checks",
		},
		[]string{"result"},
	)

	// DeliveryTransitions counts delivery lifecycle events by resulting status.
	DeliveryTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventra_delivery_transitions_total",
			Help: "Delivery lifecycle transitions by status",
		},
		[]string{"status"},
	)

	// ItemMoves counts completed item moves.
	ItemMoves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventra_item_moves_total",
			Help: "Total number of item moves",
		},
	)

	// NotificationsCreated counts notifications emitted by type.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventra_notifications_created_total",
			Help: "Notifications created by type",
		},
		[]string{"type"},
	)

	// CitiesMerged counts duplicate cities folded into a survivor.
	CitiesMerged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventra_cities_merged_total",
			Help: "Total number of duplicate cities merged",
		},
	)

	// RealtimeConnections tracks open notification stream sockets.
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inventra_realtime_connections",
			Help: "Number of open notification stream connections",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inventra_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
