package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyra_dispatch_total",
			Help: "Total processed events by kind and final state.",
		},
		[]string{"kind", "state"},
	)
	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lyra_dispatch_duration_seconds",
			Help:    "Duration of event processing from receipt to final state.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)
	multicastSendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyra_multicast_send_total",
			Help: "Total multicast sends by recipient group and status.",
		},
		[]string{"group", "status"},
	)
	multicastTokenFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyra_multicast_token_failures_total",
			Help: "Push addresses that could not be delivered to, by recipient group.",
		},
		[]string{"group"},
	)
	pushGatewaySendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyra_push_gateway_send_total",
			Help: "Total push gateway send attempts by status.",
		},
		[]string{"status"},
	)
	pushGatewaySendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lyra_push_gateway_send_duration_seconds",
			Help:    "Duration of push gateway HTTP requests.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)
	fcmBatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyra_fcm_batch_total",
			Help: "Total FCM multicast batches by status.",
		},
		[]string{"status"},
	)
)
