package toolexec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalctx_tool_calls_total",
			Help: "Tool calls dispatched in-process, by tool and result code.",
		},
		[]string{"tool", "code"},
	)

	toolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalctx_tool_call_duration_seconds",
			Help:    "Duration of in-process tool calls.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		},
		[]string{"tool"},
	)
)
