package enrich

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalctx_enrich_builds_total",
			Help: "Total context builds by outcome.",
		},
		[]string{"outcome"},
	)
	buildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signalctx_enrich_build_duration_seconds",
			Help:    "Duration of context builds, including all correlation calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	degradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalctx_enrich_degraded_total",
			Help: "Identities or queries that could not be fetched, by reason.",
		},
		[]string{"reason"},
	)
	droppedEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signalctx_enrich_dropped_entries_total",
			Help: "Log entries removed by the low-signal filter or the row budget.",
		},
	)
)
