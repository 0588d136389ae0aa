package korrel8r

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalctx_korrel8r_requests_total",
			Help: "Total Korrel8r API requests by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalctx_korrel8r_request_duration_seconds",
			Help:    "Duration of Korrel8r API requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)
)
