package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/DextroByt/Sentinel-AI/internal/store"
	"github.com/DextroByt/Sentinel-AI/pkg/logging"
)

const (
	defaultCyclePeriod     = 3600 * time.Second
	defaultDiscoveryWindow = 120 * time.Second
	defaultSafetyMargin    = 30 * time.Second
	defaultCooldown        = 5 * time.Second
	defaultMaxCrisisAge    = 24 * time.Hour
	defaultTaskLimit       = 16
)

// TaskGroup is a bounded set of supervised background tasks. Spawned work
// is tracked to completion and panics are logged instead of crashing the
// process. When the group is saturated, Spawn blocks, which applies
// natural backpressure to the discovery tick.
type TaskGroup struct {
	logger logging.Logger
	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
}

func NewTaskGroup(ctx context.Context, limit int, logger logging.Logger) *TaskGroup {
	if limit <= 0 {
		limit = defaultTaskLimit
	}
	return &TaskGroup{
		logger: logger,
		sem:    make(chan struct{}, limit),
		ctx:    ctx,
	}
}

func (g *TaskGroup) Spawn(name string, fn func(ctx context.Context)) {
	select {
	case g.sem <- struct{}{}:
	case <-g.ctx.Done():
		return
	}
	g.wg.Add(1)
	backgroundTasksActive.Inc()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				g.logger.WithFields(logging.Fields{"task": name, "panic": r}).Error("Background task panicked")
			}
			backgroundTasksActive.Dec()
			<-g.sem
			g.wg.Done()
		}()
		fn(g.ctx)
	}()
}

// Wait blocks until every spawned task has finished.
func (g *TaskGroup) Wait() {
	g.wg.Wait()
}

// SupervisorLoop drives the fixed-period monitoring cycle: discovery for
// a constant window, selection pruning, deep gathering for the remaining
// budget, then cleanup and a short cooldown. A failing stage is logged
// and the loop continues; liveness beats any single cycle's completeness.
type SupervisorLoop struct {
	discovery *DiscoveryStage
	selection *SelectionStage
	gathering *DeepGatheringScheduler
	crises    store.CrisisStore
	tasks     *TaskGroup
	logger    logging.Logger

	cyclePeriod     time.Duration
	discoveryWindow time.Duration
	safetyMargin    time.Duration
	cooldown        time.Duration
	maxCrisisAge    time.Duration
}

type SupervisorConfig struct {
	Discovery *DiscoveryStage
	Selection *SelectionStage
	Gathering *DeepGatheringScheduler
	Crises    store.CrisisStore
	Tasks     *TaskGroup
	Logger    logging.Logger

	CyclePeriod     time.Duration
	DiscoveryWindow time.Duration
	SafetyMargin    time.Duration
	Cooldown        time.Duration
	MaxCrisisAge    time.Duration
}

func NewSupervisorLoop(cfg SupervisorConfig) *SupervisorLoop {
	loop := &SupervisorLoop{
		discovery:       cfg.Discovery,
		selection:       cfg.Selection,
		gathering:       cfg.Gathering,
		crises:          cfg.Crises,
		tasks:           cfg.Tasks,
		logger:          cfg.Logger,
		cyclePeriod:     cfg.CyclePeriod,
		discoveryWindow: cfg.DiscoveryWindow,
		safetyMargin:    cfg.SafetyMargin,
		cooldown:        cfg.Cooldown,
		maxCrisisAge:    cfg.MaxCrisisAge,
	}
	if loop.cyclePeriod <= 0 {
		loop.cyclePeriod = defaultCyclePeriod
	}
	if loop.discoveryWindow <= 0 {
		loop.discoveryWindow = defaultDiscoveryWindow
	}
	if loop.safetyMargin <= 0 {
		loop.safetyMargin = defaultSafetyMargin
	}
	if loop.cooldown <= 0 {
		loop.cooldown = defaultCooldown
	}
	if loop.maxCrisisAge <= 0 {
		loop.maxCrisisAge = defaultMaxCrisisAge
	}
	return loop
}

// Run cycles until the context ends.
func (l *SupervisorLoop) Run(ctx context.Context) {
	l.logger.WithFields(logging.Fields{
		"cycle_period":     l.cyclePeriod.String(),
		"discovery_window": l.discoveryWindow.String(),
	}).Info("Supervisor loop starting")

	for cycle := 1; ; cycle++ {
		if ctx.Err() != nil {
			l.logger.Info("Supervisor loop stopping")
			l.tasks.Wait()
			return
		}
		l.runCycle(ctx, cycle)
		if !sleepCtx(ctx, l.cooldown) {
			l.logger.Info("Supervisor loop stopping")
			l.tasks.Wait()
			return
		}
	}
}

func (l *SupervisorLoop) runCycle(ctx context.Context, cycle int) {
	started := time.Now()
	log := l.logger.WithFields(logging.Fields{"cycle": cycle})
	log.Info("Cycle starting")

	// Discovery gets a constant window regardless of its own latency.
	l.runStage(ctx, "discovery", func() error {
		_, err := l.discovery.Run(ctx)
		return err
	})
	if remaining := l.discoveryWindow - time.Since(started); remaining > 0 {
		if !sleepCtx(ctx, remaining) {
			return
		}
	}

	l.runStage(ctx, "selection", func() error {
		return l.selection.Run(ctx)
	})

	gatherBudget := l.cyclePeriod - time.Since(started) - l.safetyMargin
	if gatherBudget > 0 {
		l.runStage(ctx, "deep-gathering", func() error {
			l.gathering.Run(ctx, gatherBudget)
			return nil
		})
	}

	l.runStage(ctx, "cleanup", func() error {
		deleted, err := l.crises.DeleteOlderThan(ctx, l.maxCrisisAge)
		if err != nil {
			return err
		}
		if deleted > 0 {
			log.WithFields(logging.Fields{"deleted": deleted}).Info("Stale crises cleaned up")
		}
		return nil
	})

	supervisorCyclesTotal.Inc()
	log.WithFields(logging.Fields{"duration": time.Since(started).String()}).Info("Cycle finished")
}

// runStage isolates one stage so its error or panic cannot take down the
// loop.
func (l *SupervisorLoop) runStage(ctx context.Context, name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.WithFields(logging.Fields{"stage": name, "panic": r}).Error("Stage panicked")
			stageFailuresTotal.WithLabelValues(name).Inc()
		}
	}()
	if ctx.Err() != nil {
		return
	}
	if err := fn(); err != nil {
		l.logger.WithError(err).WithFields(logging.Fields{"stage": name}).Error("Stage failed")
		stageFailuresTotal.WithLabelValues(name).Inc()
	}
}
