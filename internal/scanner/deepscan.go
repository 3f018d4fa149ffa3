package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/DextroByt/Sentinel-AI/internal/agents"
	"github.com/DextroByt/Sentinel-AI/internal/store"
	"github.com/DextroByt/Sentinel-AI/internal/verify"
	"github.com/DextroByt/Sentinel-AI/pkg/logging"
	"github.com/DextroByt/Sentinel-AI/pkg/search"
)

const (
	defaultHighRiskSeverity = 90
	defaultRescanInterval   = 120 * time.Second
	defaultBatchSize        = 5
	defaultIdleSleep        = 10 * time.Second
	defaultBatchPause       = 5 * time.Second
	trackedPollLimit        = 20
)

// DeepGatheringScheduler repeatedly investigates the tracked set for the
// length of its window. High-risk crises re-enter batches on a minimum
// interval; normal-risk crises share the remaining capacity through a
// persistent round-robin cursor so none of them starve.
type DeepGatheringScheduler struct {
	crises       store.CrisisStore
	provider     search.Provider
	extractor    *verify.ClaimExtractor
	orchestrator *verify.Orchestrator
	logger       logging.Logger

	highRiskSeverity int
	rescanInterval   time.Duration
	batchSize        int
	idleSleep        time.Duration
	batchPause       time.Duration

	mu       sync.Mutex
	lastScan map[uuid.UUID]time.Time
	cursor   int
}

type DeepGatheringConfig struct {
	Crises       store.CrisisStore
	Provider     search.Provider
	Extractor    *verify.ClaimExtractor
	Orchestrator *verify.Orchestrator
	Logger       logging.Logger

	HighRiskSeverity int
	RescanInterval   time.Duration
	BatchSize        int
	IdleSleep        time.Duration
	BatchPause       time.Duration
}

func NewDeepGatheringScheduler(cfg DeepGatheringConfig) *DeepGatheringScheduler {
	s := &DeepGatheringScheduler{
		crises:           cfg.Crises,
		provider:         cfg.Provider,
		extractor:        cfg.Extractor,
		orchestrator:     cfg.Orchestrator,
		logger:           cfg.Logger,
		highRiskSeverity: cfg.HighRiskSeverity,
		rescanInterval:   cfg.RescanInterval,
		batchSize:        cfg.BatchSize,
		idleSleep:        cfg.IdleSleep,
		batchPause:       cfg.BatchPause,
		lastScan:         make(map[uuid.UUID]time.Time),
	}
	if s.highRiskSeverity <= 0 {
		s.highRiskSeverity = defaultHighRiskSeverity
	}
	if s.rescanInterval <= 0 {
		s.rescanInterval = defaultRescanInterval
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.idleSleep <= 0 {
		s.idleSleep = defaultIdleSleep
	}
	if s.batchPause <= 0 {
		s.batchPause = defaultBatchPause
	}
	return s
}

// Run ticks until the window elapses or the context ends.
func (s *DeepGatheringScheduler) Run(ctx context.Context, window time.Duration) {
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
		tracked, err := s.crises.List(ctx, trackedPollLimit)
		if err != nil {
			s.logger.WithError(err).Warn("Deep gathering could not list tracked crises")
			if !sleepCtx(ctx, s.idleSleep) {
				return
			}
			continue
		}

		batch := s.nextBatch(tracked, time.Now())
		if len(batch) == 0 {
			if !sleepCtx(ctx, s.idleSleep) {
				return
			}
			continue
		}

		s.dispatch(ctx, batch)
		deepScanBatchesTotal.Inc()
		if !sleepCtx(ctx, s.batchPause) {
			return
		}
	}
}

// nextBatch builds one dispatch batch: every due high-risk crisis first,
// then round-robin normal-risk fill. Scan timestamps are recorded here,
// before dispatch, so a slow batch cannot double-schedule its members.
func (s *DeepGatheringScheduler) nextBatch(tracked []store.Crisis, now time.Time) []store.Crisis {
	s.mu.Lock()
	defer s.mu.Unlock()

	var highRisk, normal []store.Crisis
	for _, crisis := range tracked {
		if crisis.Severity >= s.highRiskSeverity {
			highRisk = append(highRisk, crisis)
		} else {
			normal = append(normal, crisis)
		}
	}

	var batch []store.Crisis
	for _, crisis := range highRisk {
		if len(batch) == s.batchSize {
			break
		}
		if now.Sub(s.lastScan[crisis.ID]) < s.rescanInterval {
			continue
		}
		batch = append(batch, crisis)
	}

	// The cursor wraps modulo the current normal set, which may have
	// shrunk or grown since the last tick.
	if len(normal) > 0 {
		s.cursor = s.cursor % len(normal)
		for picked := 0; picked < len(normal) && len(batch) < s.batchSize; picked++ {
			batch = append(batch, normal[s.cursor])
			s.cursor = (s.cursor + 1) % len(normal)
		}
	}

	for _, crisis := range batch {
		s.lastScan[crisis.ID] = now
	}
	return batch
}

// dispatch runs one worker per batch member and awaits them all. A
// worker's failure never disturbs its siblings.
func (s *DeepGatheringScheduler) dispatch(ctx context.Context, batch []store.Crisis) {
	g, gctx := errgroup.WithContext(ctx)
	for _, crisis := range batch {
		crisis := crisis
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.logger.WithFields(logging.Fields{"crisis": crisis.Name, "panic": r}).Error("Deep scan worker panicked")
				}
			}()
			s.investigate(gctx, crisis)
			return nil
		})
	}
	_ = g.Wait()
}

// investigate runs one crisis through the query-variant sweep, claim
// extraction, and verification, then refreshes the crisis rollup.
func (s *DeepGatheringScheduler) investigate(ctx context.Context, crisis store.Crisis) {
	started := time.Now()
	keywords := crisis.Keywords
	if keywords == "" {
		keywords = agents.ExtractKeywords(crisis.Name+" "+crisis.Description, 6)
	}
	if keywords == "" {
		s.logger.WithFields(logging.Fields{"crisis": crisis.Name}).Debug("Crisis too vague to investigate")
		return
	}

	queries := []string{keywords, keywords + " viral hoax"}
	var claims []verify.Claim
	for _, query := range queries {
		for _, hit := range s.hybridSearch(ctx, query) {
			found, err := s.extractor.Extract(ctx, hit.Title+". "+hit.Snippet)
			if err != nil {
				s.logger.WithError(err).WithFields(logging.Fields{"crisis": crisis.Name}).Warn("Claim extraction failed")
				continue
			}
			claims = append(claims, found...)
		}
	}
	if len(claims) == 0 {
		s.logger.WithFields(logging.Fields{"crisis": crisis.Name}).Debug("Deep scan found no new claims")
	}

	// Rollup runs even with nothing new extracted; the verdict refresh
	// after the query sweep is unconditional.
	if err := s.orchestrator.VerifyAndRollup(ctx, crisis, claims); err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{"crisis": crisis.Name}).Warn("Deep scan verification failed")
		return
	}
	s.logger.WithFields(logging.Fields{
		"crisis":   crisis.Name,
		"claims":   len(claims),
		"duration": time.Since(started).String(),
	}).Info("Deep scan completed")
}

// hybridSearch prefers the news index and widens to general text search
// when news coverage is thin.
func (s *DeepGatheringScheduler) hybridSearch(ctx context.Context, query string) []search.Result {
	opts := search.Options{Limit: 5, Freshness: search.FreshnessDay}
	hits, err := s.provider.News(ctx, query, opts)
	if err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{"query": query}).Debug("News search failed")
	}
	if len(hits) >= 2 {
		return hits
	}
	textHits, err := s.provider.Text(ctx, query, opts)
	if err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{"query": query}).Debug("Text search failed")
		return hits
	}
	return append(hits, textHits...)
}

// sleepCtx sleeps for d unless the context ends first; it reports whether
// the caller should keep running.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
