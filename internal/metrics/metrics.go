package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Inbound events per channel (client, admin, payment).
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_total",
			Help: "Inbound webhook events accepted per channel",
		},
		[]string{"channel"},
	)
	// Rejected at the authentication boundary, before business logic.
	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_auth_failures_total",
			Help: "Webhook events rejected for bad or missing signatures",
		},
		[]string{"channel"},
	)

	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transaction_transitions_total",
			Help: "Committed transaction status transitions by target status",
		},
		[]string{"to"},
	)
	AutoApprovalsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "transaction_auto_approvals_total",
			Help: "Transactions approved by the policy without a human decision",
		},
	)
	PaymentsConfirmedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_confirmed_total",
			Help: "Payments confirmed and credited to the ledger",
		},
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current notification worker queue depth",
		},
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(AuthFailuresTotal)
	prometheus.MustRegister(TransitionsTotal)
	prometheus.MustRegister(AutoApprovalsTotal)
	prometheus.MustRegister(PaymentsConfirmedTotal)
	prometheus.MustRegister(WorkerQueueDepth)
}
