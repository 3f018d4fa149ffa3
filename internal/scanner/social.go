package scanner

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DextroByt/Sentinel-AI/internal/feeds"
	"github.com/DextroByt/Sentinel-AI/pkg/logging"
	"github.com/DextroByt/Sentinel-AI/pkg/search"
)

// defaultProbeQueries are the canned high-signal templates the social
// probe sweeps every discovery tick.
var defaultProbeQueries = []string{
	"\"breaking\" flood OR earthquake OR cyclone viral video",
	"\"just now\" explosion OR fire OR collapse footage",
	"viral claim disaster \"is this real\"",
	"hoax OR fake alert emergency evacuation",
	"unverified video rescue OR casualties trending",
}

// SocialProbe sweeps a fixed set of canned search templates against the
// news index, emulating social listening through the search backend. The
// sweeps run on a bounded worker pool so a slow backend cannot stall the
// discovery tick beyond its own timeouts.
type SocialProbe struct {
	queries  []string
	provider search.Provider
	limit    int
	logger   logging.Logger
}

type SocialProbeConfig struct {
	Queries        []string
	Provider       search.Provider
	ConcurrencyCap int
	Logger         logging.Logger
}

func NewSocialProbe(cfg SocialProbeConfig) *SocialProbe {
	queries := cfg.Queries
	if len(queries) == 0 {
		queries = defaultProbeQueries
	}
	limit := cfg.ConcurrencyCap
	if limit <= 0 {
		limit = 3
	}
	return &SocialProbe{
		queries:  queries,
		provider: cfg.Provider,
		limit:    limit,
		logger:   cfg.Logger,
	}
}

// FetchAll runs every probe query and flattens the hits into signals.
// Query failures are logged and skipped.
func (p *SocialProbe) FetchAll(ctx context.Context) []feeds.Signal {
	var mu sync.Mutex
	var signals []feeds.Signal

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for _, query := range p.queries {
		query := query
		g.Go(func() error {
			results, err := p.provider.News(gctx, query, search.Options{Limit: 5, Freshness: search.FreshnessDay})
			if err != nil {
				p.logger.WithError(err).WithFields(logging.Fields{"query": query}).Debug("Social probe query failed")
				return nil
			}
			now := time.Now()
			mu.Lock()
			for _, r := range results {
				signals = append(signals, feeds.Signal{
					Title:       r.Title,
					Body:        r.Snippet,
					URL:         r.URL,
					SourceName:  "social-probe",
					SourceKind:  feeds.KindSocial,
					PublishedAt: now,
				})
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return signals
}
