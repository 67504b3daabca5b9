package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "schoolbooking",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "schoolbooking",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "schoolbooking",
			Name:      "reservation_created_total",
			Help:      "Count of reservations created by status.",
		},
		[]string{"status"},
	)

	reservationCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "schoolbooking",
			Name:      "reservation_cancelled_total",
			Help:      "Count of reservations cancelled.",
		},
	)

	reservationConflict = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "schoolbooking",
			Name:      "reservation_conflict_total",
			Help:      "Count of reservation attempts rejected for overlapping a confirmed reservation.",
		},
	)

	wsClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "schoolbooking",
			Name:      "ws_clients",
			Help:      "Connected realtime clients.",
		},
	)

	purged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "schoolbooking",
			Name:      "housekeeping_purged_total",
			Help:      "Cancelled reservations removed by housekeeping.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			reservationCreated, reservationCancelled, reservationConflict,
			wsClients, purged,
		)
	})
}

func ObserveHTTP(method, route, status string, seconds float64) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

func IncReservationCreated(status string) {
	reservationCreated.WithLabelValues(status).Inc()
}

func IncReservationCancelled() {
	reservationCancelled.Inc()
}

func IncReservationConflict() {
	reservationConflict.Inc()
}

func SetWSClients(n int) {
	wsClients.Set(float64(n))
}

func AddPurged(n int64) {
	purged.Add(float64(n))
}
