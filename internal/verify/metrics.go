package verify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "verifications_total",
		Help:      "Completed claim verifications by verdict status",
	}, []string{"status"})

	verificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sentinel",
		Name:      "verification_duration_seconds",
		Help:      "End-to-end duration of one claim verification",
		Buckets:   prometheus.DefBuckets,
	})
)
