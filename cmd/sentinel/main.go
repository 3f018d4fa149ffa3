package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DextroByt/Sentinel-AI/internal/agents"
	appconfig "github.com/DextroByt/Sentinel-AI/internal/config"
	"github.com/DextroByt/Sentinel-AI/internal/feeds"
	"github.com/DextroByt/Sentinel-AI/internal/handlers"
	"github.com/DextroByt/Sentinel-AI/internal/judge"
	"github.com/DextroByt/Sentinel-AI/internal/scanner"
	"github.com/DextroByt/Sentinel-AI/internal/store"
	"github.com/DextroByt/Sentinel-AI/internal/verify"
	"github.com/DextroByt/Sentinel-AI/pkg/config"
	"github.com/DextroByt/Sentinel-AI/pkg/database"
	"github.com/DextroByt/Sentinel-AI/pkg/logging"
	"github.com/DextroByt/Sentinel-AI/pkg/search"
)

func main() {
	logger := logging.NewLoggerWithService("sentinel")
	config.LoadEnv(logger)

	logger.Info("Starting Sentinel (Crisis Monitoring Service)")

	cfg := appconfig.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db := database.MustConnect(cfg.Database, logger)
	defer db.Close()
	if err := database.ApplySchema(ctx, db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to apply database schema")
	}

	crisisStore := store.NewCrisisStore(db)
	timelineStore := store.NewTimelineStore(db)
	notificationStore := store.NewNotificationStore(db)
	analysisStore := store.NewAnalysisStore(db)

	// Judgment service with credential rotation
	rotation, err := judge.NewRotationManager(judge.RotationConfig{
		Caller:  judge.NewGeminiClient(config.GetEnv("GEMINI_BASE_URL", "")),
		Keys:    cfg.GeminiKeys,
		Backoff: cfg.RotationBackoff,
		Logger:  logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to build rotation manager")
	}

	// Search
	provider, err := search.NewProvider(cfg.Search)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build search provider")
	}
	searcher := search.WithRetry(provider, cfg.SearchRetry)

	// Evidence agents
	official := agents.NewOfficialSourceAgent(agents.OfficialConfig{
		PortalURLs:      cfg.PortalURLs,
		TrustedDomains:  cfg.TrustedDomains,
		OfficialHandles: cfg.OfficialHandles,
		Provider:        searcher,
		Logger:          logger,
	})
	media := agents.NewMediaCrossRefAgent(agents.MediaConfig{
		TrustedOutlets: cfg.TrustedOutlets,
		Provider:       searcher,
		Logger:         logger,
	})
	debunk := agents.NewDebunkSearchAgent(agents.DebunkConfig{
		FactCheckSites: cfg.FactCheckSites,
		Provider:       searcher,
		Logger:         logger,
	})

	// Verification pipeline
	synthesizer := verify.NewSynthesizer(rotation, cfg.ProModel)
	extractor := verify.NewClaimExtractor(rotation, cfg.FlashModel)
	orchestrator := verify.NewOrchestrator(verify.OrchestratorConfig{
		Agents:      []agents.Agent{official, media, debunk},
		Synthesizer: synthesizer,
		Timeline:    timelineStore,
		Crises:      crisisStore,
		Analyses:    analysisStore,
		Logger:      logger,
	})

	// Supervised background tasks
	tasks := scanner.NewTaskGroup(ctx, cfg.TaskLimit, logger)

	// Monitoring pipeline
	aggregator := feeds.NewRSSAggregator(feeds.RSSConfig{
		FeedURLs: cfg.FeedURLs,
		Logger:   logger,
	})
	probe := scanner.NewSocialProbe(scanner.SocialProbeConfig{
		Queries:  cfg.ProbeQueries,
		Provider: searcher,
		Logger:   logger,
	})
	discovery := scanner.NewDiscoveryStage(scanner.DiscoveryConfig{
		Aggregator:    aggregator,
		Probe:         probe,
		Gateway:       rotation,
		Model:         cfg.ProModel,
		Crises:        crisisStore,
		Timeline:      timelineStore,
		Notifications: notificationStore,
		Orchestrator:  orchestrator,
		Spawner:       tasks,
		BatchCap:      cfg.BatchCap,
		Logger:        logger,
	})
	selection := scanner.NewSelectionStage(scanner.SelectionConfig{
		Crises:  crisisStore,
		Gateway: rotation,
		Model:   cfg.FlashModel,
		Cap:     cfg.SelectionCap,
		Logger:  logger,
	})
	gathering := scanner.NewDeepGatheringScheduler(scanner.DeepGatheringConfig{
		Crises:           crisisStore,
		Provider:         searcher,
		Extractor:        extractor,
		Orchestrator:     orchestrator,
		Logger:           logger,
		HighRiskSeverity: cfg.HighRiskSeverity,
		RescanInterval:   cfg.RescanInterval,
		BatchSize:        cfg.BatchSize,
	})
	supervisor := scanner.NewSupervisorLoop(scanner.SupervisorConfig{
		Discovery:       discovery,
		Selection:       selection,
		Gathering:       gathering,
		Crises:          crisisStore,
		Tasks:           tasks,
		Logger:          logger,
		CyclePeriod:     cfg.CyclePeriod,
		DiscoveryWindow: cfg.DiscoveryWindow,
		SafetyMargin:    cfg.SafetyMargin,
		Cooldown:        cfg.Cooldown,
		MaxCrisisAge:    cfg.MaxCrisisAge,
	})

	go supervisor.Run(ctx)

	// HTTP API
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handlers.New(handlers.Config{
		Crises:        crisisStore,
		Timeline:      timelineStore,
		Notifications: notificationStore,
		Analyses:      analysisStore,
		Runner:        orchestrator,
		Spawner:       tasks,
		Logger:        logger,
	}).Register(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP shutdown incomplete")
	}
	logger.Info("Sentinel stopped")
}
