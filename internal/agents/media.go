package agents

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/DextroByt/Sentinel-AI/pkg/logging"
	"github.com/DextroByt/Sentinel-AI/pkg/search"
)

// MediaCrossRefAgent cross-references a claim against mainstream news
// coverage. It runs two searches concurrently: one restricted to trusted
// outlets and one open query with viral/hoax context terms, then merges
// the results with URL-level dedup.
type MediaCrossRefAgent struct {
	outlets  []string
	provider search.Provider
	logger   logging.Logger
}

type MediaConfig struct {
	TrustedOutlets []string
	Provider       search.Provider
	Logger         logging.Logger
}

func NewMediaCrossRefAgent(cfg MediaConfig) *MediaCrossRefAgent {
	return &MediaCrossRefAgent{
		outlets:  cfg.TrustedOutlets,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

func (a *MediaCrossRefAgent) Kind() EvidenceKind { return KindMedia }

func (a *MediaCrossRefAgent) Gather(ctx context.Context, claimText string) []EvidenceItem {
	query := ExtractKeywords(claimText, 7)
	if query == "" {
		return sentinelItem(KindMedia, "Claim text too vague for media cross-reference.")
	}

	var mu sync.Mutex
	var trusted, viral []EvidenceItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found := a.run(gctx, scopeQuery(query, a.outlets))
		mu.Lock()
		trusted = found
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		found := a.run(gctx, query+" viral claim OR hoax OR confirmed")
		mu.Lock()
		viral = found
		mu.Unlock()
		return nil
	})
	_ = g.Wait()

	// First occurrence of a URL wins; trusted outlets rank ahead of the
	// open query so their framing leads the evidence block.
	seen := make(map[string]bool)
	var merged []EvidenceItem
	for _, item := range append(trusted, viral...) {
		key := strings.TrimSuffix(item.URL, "/")
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, item)
	}

	if len(merged) == 0 {
		return sentinelItem(KindMedia, "No mainstream media coverage found for this claim.")
	}
	return merged
}

func (a *MediaCrossRefAgent) run(ctx context.Context, query string) []EvidenceItem {
	results, err := a.provider.News(ctx, query, search.Options{Limit: 5, Freshness: search.FreshnessWeek})
	if err != nil {
		if a.logger != nil {
			a.logger.WithError(err).Debug("Media search failed")
		}
		return nil
	}
	return convertResults(KindMedia, results)
}
