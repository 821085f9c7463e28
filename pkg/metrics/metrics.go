package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Booking metrics
	ReservationsTotal   prometheus.Counter
	ReservationConflict prometheus.Counter

	// Payment metrics
	PaymentsConfirmed prometheus.Counter
	PaymentsRejected  prometheus.Counter
	GatewayCalls      *prometheus.CounterVec
	GatewayLatency    prometheus.Histogram

	// Sweeper metrics
	SweepRuns         prometheus.Counter
	SweepErrors       prometheus.Counter
	BookingsReclaimed prometheus.Counter

	// Outbox metrics
	OutboxEventsProcessed prometheus.Counter
	OutboxEventsFailed    prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ReservationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Total number of successful slot reservations",
		}),
		ReservationConflict: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_conflicts_total",
			Help:      "Total number of reservations rejected because the slot was unavailable",
		}),
		PaymentsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_confirmed_total",
			Help:      "Total number of payments confirmed via gateway validation",
		}),
		PaymentsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_rejected_total",
			Help:      "Total number of gateway callbacks rejected as invalid or failed",
		}),
		GatewayCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Total number of payment gateway calls",
		}, []string{"operation", "status"}),
		GatewayLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_seconds",
			Help:      "Duration of payment gateway calls",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		SweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Total number of stale booking sweep runs",
		}),
		SweepErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_errors_total",
			Help:      "Total number of sweep runs that ended with an error",
		}),
		BookingsReclaimed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_reclaimed_total",
			Help:      "Total number of unpaid bookings reclaimed by the sweeper",
		}),
		OutboxEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
	}
}
