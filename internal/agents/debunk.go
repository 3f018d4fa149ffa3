package agents

import (
	"context"
	"strings"

	"github.com/DextroByt/Sentinel-AI/pkg/logging"
	"github.com/DextroByt/Sentinel-AI/pkg/search"
)

// Headline phrases that flag a fact-check hit as relevant even when token
// overlap with the claim is thin.
var debunkMarkers = []string{
	"false", "fake", "hoax", "misleading", "old video", "doctored",
}

// DebunkSearchAgent looks for prior debunks of a claim on dedicated
// fact-checking sites. Searches are deliberately unbounded in time:
// recycled misinformation is usually debunked long before it resurfaces.
type DebunkSearchAgent struct {
	factCheckSites []string
	threshold      float64
	provider       search.Provider
	logger         logging.Logger
}

type DebunkConfig struct {
	FactCheckSites []string
	// SimilarityThreshold is the minimum token overlap between the claim
	// and a result headline. Zero means the 0.20 default.
	SimilarityThreshold float64
	Provider            search.Provider
	Logger              logging.Logger
}

func NewDebunkSearchAgent(cfg DebunkConfig) *DebunkSearchAgent {
	threshold := cfg.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.20
	}
	return &DebunkSearchAgent{
		factCheckSites: cfg.FactCheckSites,
		threshold:      threshold,
		provider:       cfg.Provider,
		logger:         cfg.Logger,
	}
}

func (a *DebunkSearchAgent) Kind() EvidenceKind { return KindDebunk }

func (a *DebunkSearchAgent) Gather(ctx context.Context, claimText string) []EvidenceItem {
	query := ExtractKeywords(claimText, 7)
	if query == "" {
		return sentinelItem(KindDebunk, "Claim text too vague for debunk lookup.")
	}

	results, err := a.provider.Text(ctx, scopeQuery(query+" fact check", a.factCheckSites), search.Options{Limit: 8, Freshness: search.FreshnessAny})
	if err != nil {
		if a.logger != nil {
			a.logger.WithError(err).Debug("Debunk search failed")
		}
		return sentinelItem(KindDebunk, "Debunk search unavailable for this claim.")
	}

	var items []EvidenceItem
	for _, r := range results {
		if a.relevant(claimText, r) {
			items = append(items, EvidenceItem{
				Kind:    KindDebunk,
				Title:   r.Title,
				URL:     r.URL,
				Snippet: r.Snippet,
			})
		}
	}
	if len(items) == 0 {
		return sentinelItem(KindDebunk, "No existing fact-checks found for this claim.")
	}
	return items
}

// relevant accepts a result when its headline overlaps the claim enough,
// or when the headline or snippet carries an explicit debunk marker.
func (a *DebunkSearchAgent) relevant(claimText string, r search.Result) bool {
	if Similarity(claimText, r.Title) >= a.threshold {
		return true
	}
	haystack := strings.ToLower(r.Title + " " + r.Snippet)
	for _, marker := range debunkMarkers {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return false
}
