package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestDuration observes request latency by route and status
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "turnstile_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// QueueDepth tracks the number of waiting clients per event
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "turnstile_queue_depth",
		Help: "Waiting clients per event.",
	}, []string{"event_id"})

	// ActiveWindow tracks admitted clients per event; it must never exceed
	// the configured window size
	ActiveWindow = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "turnstile_active_window",
		Help: "Admitted clients per event.",
	}, []string{"event_id"})

	// AdmissionsTotal counts queue admissions by outcome (completed,
	// abandoned, expired)
	AdmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "turnstile_admissions_total",
		Help: "Queue admissions by final outcome.",
	}, []string{"outcome"})

	// ReservationsTotal counts ledger operations by outcome
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "turnstile_reservations_total",
		Help: "Reservation operations by outcome.",
	}, []string{"outcome"})
)

// Reservation outcome labels
const (
	OutcomeReserved          = "reserved"
	OutcomeReplayed          = "replayed"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeConfirmed         = "confirmed"
	OutcomeReleased          = "released"
	OutcomeExpired           = "expired"
)

// Handler exposes the /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
