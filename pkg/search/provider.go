package search

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider defines the interface for web search providers. Text runs a
// general web search; News restricts results to news indexes where the
// backend supports it.
type Provider interface {
	Text(ctx context.Context, query string, opts Options) ([]Result, error)
	News(ctx context.Context, query string, opts Options) ([]Result, error)
}

// Result represents a single search result.
type Result struct {
	Title   string
	URL     string
	Snippet string
	Score   float64
}

// Options controls search behavior across providers.
type Options struct {
	Limit     int
	Freshness Freshness
}

// Freshness bounds how recent results must be. The zero value applies no
// recency restriction, which some callers rely on to surface old material.
type Freshness string

const (
	FreshnessAny   Freshness = ""
	FreshnessDay   Freshness = "day"
	FreshnessWeek  Freshness = "week"
	FreshnessMonth Freshness = "month"
)

// Config selects and configures a concrete provider.
type Config struct {
	Provider string
	APIKey   string
	APIURL   string
	Timeout  time.Duration
}

// NewProvider constructs the provider named by cfg.Provider.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "brave":
		return NewBraveProvider(cfg.APIKey, cfg.APIURL)
	case "searxng":
		return NewSearxngProvider(cfg.APIURL)
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}
}
