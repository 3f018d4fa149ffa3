package feeds

import (
	"context"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/DextroByt/Sentinel-AI/pkg/logging"
)

// SourceKind distinguishes where a signal came from.
type SourceKind string

const (
	KindFeed   SourceKind = "FEED"
	KindSocial SourceKind = "SOCIAL"
)

// Signal is a raw, unvalidated discovery item. Signals are never
// persisted; each one lives for a single discovery tick.
type Signal struct {
	Title       string
	Body        string
	URL         string
	SourceName  string
	SourceKind  SourceKind
	PublishedAt time.Time
}

// Aggregator fetches signals from external feeds.
type Aggregator interface {
	FetchAll(ctx context.Context) []Signal
}

// RSSAggregator pulls every configured RSS/Atom feed concurrently. Feed
// failures are logged and skipped; a broken feed never empties the batch.
type RSSAggregator struct {
	urls    []string
	parser  *gofeed.Parser
	limit   int
	logger  logging.Logger
	timeout time.Duration
}

// RSSConfig configures the aggregator.
type RSSConfig struct {
	FeedURLs       []string
	ConcurrencyCap int
	Timeout        time.Duration
	Logger         logging.Logger
}

func NewRSSAggregator(cfg RSSConfig) *RSSAggregator {
	limit := cfg.ConcurrencyCap
	if limit <= 0 {
		limit = 4
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RSSAggregator{
		urls:    cfg.FeedURLs,
		parser:  gofeed.NewParser(),
		limit:   limit,
		logger:  cfg.Logger,
		timeout: timeout,
	}
}

// FetchAll fetches all feeds and flattens their entries into signals.
func (a *RSSAggregator) FetchAll(ctx context.Context) []Signal {
	var mu sync.Mutex
	var signals []Signal

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)

	for _, feedURL := range a.urls {
		feedURL := feedURL
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, a.timeout)
			defer cancel()

			feed, err := a.parser.ParseURLWithContext(feedURL, fctx)
			if err != nil {
				if a.logger != nil {
					a.logger.WithError(err).WithField("feed", feedURL).Warn("Feed fetch failed")
				}
				return nil
			}
			items := convertFeed(feed)
			mu.Lock()
			signals = append(signals, items...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if a.logger != nil {
		a.logger.WithFields(logging.Fields{
			"feeds":   len(a.urls),
			"signals": len(signals),
		}).Debug("Feed aggregation complete")
	}
	return signals
}

func convertFeed(feed *gofeed.Feed) []Signal {
	now := time.Now()
	sourceName := feed.Title
	if sourceName == "" {
		sourceName = "RSS Feed"
	}

	signals := make([]Signal, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Link == "" {
			continue
		}
		published := now
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}
		signals = append(signals, Signal{
			Title:       entry.Title,
			Body:        entry.Description,
			URL:         entry.Link,
			SourceName:  sourceName,
			SourceKind:  KindFeed,
			PublishedAt: published,
		})
	}
	return signals
}
