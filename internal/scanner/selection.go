package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/DextroByt/Sentinel-AI/internal/judge"
	"github.com/DextroByt/Sentinel-AI/internal/store"
	"github.com/DextroByt/Sentinel-AI/pkg/logging"
)

const defaultSelectionCap = 10

const selectionPrompt = `You are the prioritization stage of a crisis monitoring system.
From the tracked situations below, choose exactly %d to keep under active monitoring.
Balance roughly 3 high-confidence real events against 7 viral or misinformation candidates.
Favor higher severity and geographic diversity.

Respond with ONLY a JSON object of this exact shape:
{"keep": ["id", "id", ...]}

Tracked situations:
%s`

// SelectionStage prunes the tracked set to a fixed cap each cycle. The
// judgment service picks the survivors; any decision failure falls back
// to keeping the top severities deterministically.
type SelectionStage struct {
	crises  store.CrisisStore
	gateway judge.Gateway
	model   string
	cap     int
	logger  logging.Logger
}

type SelectionConfig struct {
	Crises  store.CrisisStore
	Gateway judge.Gateway
	Model   string
	Cap     int
	Logger  logging.Logger
}

func NewSelectionStage(cfg SelectionConfig) *SelectionStage {
	keepCap := cfg.Cap
	if keepCap <= 0 {
		keepCap = defaultSelectionCap
	}
	return &SelectionStage{
		crises:  cfg.Crises,
		gateway: cfg.Gateway,
		model:   cfg.Model,
		cap:     keepCap,
		logger:  cfg.Logger,
	}
}

// Run prunes the tracked set. This stage only deletes, never creates.
func (s *SelectionStage) Run(ctx context.Context) error {
	tracked, err := s.crises.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("list tracked crises: %w", err)
	}
	if len(tracked) <= s.cap {
		return nil
	}

	keep, err := s.decide(ctx, tracked)
	if err != nil {
		s.logger.WithError(err).Warn("Selection decision failed, falling back to severity order")
		keep = fallbackBySeverity(tracked, s.cap)
		selectionFallbacksTotal.Inc()
	}

	deleted, err := s.crises.DeleteAllExcept(ctx, keep)
	if err != nil {
		return fmt.Errorf("prune tracked set: %w", err)
	}
	s.logger.WithFields(logging.Fields{
		"kept":    len(keep),
		"deleted": deleted,
	}).Info("Tracked set pruned")
	return nil
}

func (s *SelectionStage) decide(ctx context.Context, tracked []store.Crisis) ([]uuid.UUID, error) {
	byID := make(map[uuid.UUID]bool, len(tracked))
	var listing strings.Builder
	for _, crisis := range tracked {
		byID[crisis.ID] = true
		fmt.Fprintf(&listing, "- id=%s severity=%d location=%q name=%q: %s\n",
			crisis.ID, crisis.Severity, crisis.Location, crisis.Name, crisis.Description)
	}

	raw, err := s.gateway.Generate(ctx, s.model, fmt.Sprintf(selectionPrompt, s.cap, listing.String()), judge.GenerateOptions{JSONOutput: true})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Keep []string `json:"keep"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("selection returned malformed JSON: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(payload.Keep))
	var keep []uuid.UUID
	for _, idStr := range payload.Keep {
		id, err := uuid.Parse(idStr)
		if err != nil || !byID[id] || seen[id] {
			continue
		}
		seen[id] = true
		keep = append(keep, id)
		if len(keep) == s.cap {
			break
		}
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("selection kept no valid ids out of %d", len(payload.Keep))
	}
	return keep, nil
}

// fallbackBySeverity keeps the top cap crises by severity descending,
// breaking ties by creation time so the outcome is stable.
func fallbackBySeverity(tracked []store.Crisis, limit int) []uuid.UUID {
	sorted := append([]store.Crisis(nil), tracked...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Severity != sorted[j].Severity {
			return sorted[i].Severity > sorted[j].Severity
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	keep := make([]uuid.UUID, 0, len(sorted))
	for _, crisis := range sorted {
		keep = append(keep, crisis.ID)
	}
	return keep
}
