package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	supervisorCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "supervisor_cycles_total",
		Help:      "Completed supervisor cycles",
	})

	stageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "stage_failures_total",
		Help:      "Stage-level failures absorbed by the supervisor loop",
	}, []string{"stage"})

	discoveredCrisesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "discovered_crises_total",
		Help:      "New crises registered by the discovery stage",
	})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "notifications_total",
		Help:      "Notifications emitted by type",
	}, []string{"type"})

	selectionFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "selection_fallbacks_total",
		Help:      "Selection passes that fell back to severity ordering",
	})

	deepScanBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "deep_scan_batches_total",
		Help:      "Dispatched deep gathering batches",
	})

	backgroundTasksActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sentinel",
		Name:      "background_tasks_active",
		Help:      "Currently running supervised background tasks",
	})
)
