package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/DextroByt/Sentinel-AI/internal/agents"
	"github.com/DextroByt/Sentinel-AI/internal/store"
	"github.com/DextroByt/Sentinel-AI/pkg/logging"
)

// Orchestrator runs the full verification pipeline for a single claim:
// dedup check, concurrent evidence gathering across all agents, verdict
// synthesis, and persistence.
type Orchestrator struct {
	agents      []agents.Agent
	synthesizer *Synthesizer
	timeline    store.TimelineStore
	crises      store.CrisisStore
	analyses    store.AnalysisStore
	logger      logging.Logger
}

// OrchestratorConfig wires the orchestrator's collaborators. Agents are
// consulted in the order given; evidence keeps that order in the
// synthesis prompt.
type OrchestratorConfig struct {
	Agents      []agents.Agent
	Synthesizer *Synthesizer
	Timeline    store.TimelineStore
	Crises      store.CrisisStore
	Analyses    store.AnalysisStore
	Logger      logging.Logger
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		agents:      cfg.Agents,
		synthesizer: cfg.Synthesizer,
		timeline:    cfg.Timeline,
		crises:      cfg.Crises,
		analyses:    cfg.Analyses,
		logger:      cfg.Logger,
	}
}

// VerifyClaim verifies one claim in the scope of a crisis (or ad-hoc when
// crisisID is nil). Re-verifying a claim already on the timeline is a
// no-op returning the existing record, so retried scans never duplicate
// work or rows.
func (o *Orchestrator) VerifyClaim(ctx context.Context, crisisID *uuid.UUID, claim Claim) (*store.TimelineItem, error) {
	existing, err := o.timeline.GetByClaimText(ctx, crisisID, claim.Text)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}
	if existing != nil {
		o.logger.WithFields(logging.Fields{"claim": claim.Text}).Debug("Claim already verified, skipping")
		return existing, nil
	}

	started := time.Now()
	evidence := o.gather(ctx, claim.Text)

	verdict, err := o.synthesizer.Synthesize(ctx, claim.Text, evidence)
	if err != nil {
		return nil, err
	}

	item, err := o.timeline.Create(ctx, store.TimelineItem{
		CrisisID:   crisisID,
		ClaimText:  claim.Text,
		Summary:    verdict.Summary,
		Status:     verdict.Status,
		Location:   claim.Location,
		Sources:    verdict.Sources,
		Confidence: verdict.Confidence,
		Reasoning:  verdict.Reasoning,
	})
	if err != nil {
		return nil, fmt.Errorf("persist verdict: %w", err)
	}

	o.logger.WithFields(logging.Fields{
		"claim":      claim.Text,
		"status":     verdict.Status,
		"confidence": verdict.Confidence,
		"duration":   time.Since(started).String(),
	}).Info("Claim verified")
	verificationsTotal.WithLabelValues(string(verdict.Status)).Inc()
	verificationDuration.Observe(time.Since(started).Seconds())
	return &item, nil
}

// VerifyAndRollup verifies a batch of claims for one crisis and then
// refreshes the crisis-level verdict from its full timeline. Individual
// claim failures are logged and skipped. The rollup runs even when no
// claim landed so a crisis with quiet searches still gets its verdict
// refreshed instead of sitting on a stale status.
func (o *Orchestrator) VerifyAndRollup(ctx context.Context, crisis store.Crisis, claims []Claim) error {
	for _, claim := range claims {
		if _, err := o.VerifyClaim(ctx, &crisis.ID, claim); err != nil {
			o.logger.WithError(err).WithFields(logging.Fields{
				"crisis": crisis.Name,
				"claim":  claim.Text,
			}).Warn("Claim verification failed")
		}
	}

	items, err := o.timeline.ListForCrisis(ctx, crisis.ID)
	if err != nil {
		return fmt.Errorf("load timeline for rollup: %w", err)
	}
	status, summary, err := o.synthesizer.Rollup(ctx, crisis.Name, items)
	if err != nil {
		return err
	}
	if err := o.crises.UpdateVerdict(ctx, crisis.ID, status, summary); err != nil {
		return fmt.Errorf("update crisis verdict: %w", err)
	}
	return nil
}

// RunAdhoc drives one user-submitted analysis through the pipeline,
// recording lifecycle transitions so the polling endpoint sees progress.
// Any pipeline error marks the analysis FAILED instead of leaving it
// stuck in PROCESSING.
func (o *Orchestrator) RunAdhoc(ctx context.Context, analysisID uuid.UUID, queryText string) {
	if err := o.analyses.SetStatus(ctx, analysisID, store.AnalysisProcessing); err != nil {
		o.logger.WithError(err).Error("Failed to mark analysis processing")
		return
	}

	verdict, err := o.runAdhocPipeline(ctx, queryText)
	if err != nil {
		o.logger.WithError(err).WithFields(logging.Fields{"analysis_id": analysisID}).Error("Ad-hoc analysis failed")
		if ferr := o.analyses.SetStatus(ctx, analysisID, store.AnalysisFailed); ferr != nil {
			o.logger.WithError(ferr).Error("Failed to mark analysis failed")
		}
		return
	}

	if err := o.analyses.SetVerdict(ctx, analysisID,
		string(verdict.Status), verdict.Summary, verdict.Sources, verdict.Confidence, verdict.Reasoning); err != nil {
		o.logger.WithError(err).Error("Failed to record analysis verdict")
	}
}

func (o *Orchestrator) runAdhocPipeline(ctx context.Context, queryText string) (Verdict, error) {
	// The timeline doubles as an ad-hoc cache: an identical earlier query
	// short-circuits the whole pipeline.
	if existing, err := o.timeline.GetByClaimText(ctx, nil, queryText); err == nil && existing != nil {
		return Verdict{
			Status:     existing.Status,
			Summary:    existing.Summary,
			Confidence: existing.Confidence,
			Reasoning:  existing.Reasoning,
			Sources:    existing.Sources,
		}, nil
	}

	evidence := o.gather(ctx, queryText)
	verdict, err := o.synthesizer.Synthesize(ctx, queryText, evidence)
	if err != nil {
		return Verdict{}, err
	}
	if _, err := o.timeline.Create(ctx, store.TimelineItem{
		ClaimText:  queryText,
		Summary:    verdict.Summary,
		Status:     verdict.Status,
		Sources:    verdict.Sources,
		Confidence: verdict.Confidence,
		Reasoning:  verdict.Reasoning,
	}); err != nil {
		o.logger.WithError(err).Warn("Failed to cache ad-hoc verdict")
	}
	return verdict, nil
}

// gather fans out to every agent concurrently and waits for all of them.
// Agents never error; a slow or failing channel just contributes its
// sentinel item. Output order follows agent registration order regardless
// of completion order.
func (o *Orchestrator) gather(ctx context.Context, claimText string) []agents.EvidenceItem {
	buckets := make([][]agents.EvidenceItem, len(o.agents))
	g, gctx := errgroup.WithContext(ctx)
	for i, agent := range o.agents {
		i, agent := i, agent
		g.Go(func() error {
			buckets[i] = agent.Gather(gctx, claimText)
			return nil
		})
	}
	_ = g.Wait()

	var evidence []agents.EvidenceItem
	for _, bucket := range buckets {
		evidence = append(evidence, bucket...)
	}
	return evidence
}
