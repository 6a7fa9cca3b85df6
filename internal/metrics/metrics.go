// Package metrics holds the Prometheus collectors of the IVR service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ivr_webhook_requests_total",
		Help: "Voice webhooks handled, by step and outcome",
	}, []string{"step", "outcome"})

	WebhookLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ivr_webhook_duration_seconds",
		Help:    "Voice webhook latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"step"})

	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ivr_registrations_total",
		Help: "Accounts created or replaced through phone registration",
	})

	TransferRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ivr_transfer_requests_total",
		Help: "Transfer flows finished, by result",
	}, []string{"result"})
)
