package trigger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyra_ingest_requests_total",
			Help: "HTTP ingest requests by result.",
		},
		[]string{"result"},
	)
	triggerEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyra_trigger_events_total",
			Help: "Events submitted to the dispatcher, by trigger source and collection.",
		},
		[]string{"source", "collection"},
	)
	pollErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lyra_poll_errors_total",
			Help: "Failed SQL poll queries.",
		},
	)
)
