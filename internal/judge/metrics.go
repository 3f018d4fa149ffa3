package judge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rotationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "credential_rotations_total",
			Help:      "Total credential rotations triggered by rate limits",
		},
	)

	generateCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "judge_calls_total",
			Help:      "Total judgment service calls",
		},
		[]string{"model", "status"},
	)

	generateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sentinel",
			Name:      "judge_call_duration_seconds",
			Help:      "Duration of judgment service calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
)
