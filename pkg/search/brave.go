package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBraveWebURL  = "https://api.search.brave.com/res/v1/web/search"
	defaultBraveNewsURL = "https://api.search.brave.com/res/v1/news/search"
)

// BraveProvider implements the Brave Search API.
type BraveProvider struct {
	apiKey  string
	webURL  string
	newsURL string
	client  *http.Client
}

// NewBraveProvider creates a Brave search provider. apiURL overrides the web
// search endpoint; the news endpoint is derived from it.
func NewBraveProvider(apiKey, apiURL string) (*BraveProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("brave api key is required")
	}
	webURL := strings.TrimSpace(apiURL)
	newsURL := defaultBraveNewsURL
	if webURL == "" {
		webURL = defaultBraveWebURL
	} else {
		newsURL = strings.Replace(webURL, "/web/", "/news/", 1)
	}
	return &BraveProvider{
		apiKey:  apiKey,
		webURL:  webURL,
		newsURL: newsURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type braveWebResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveNewsResponse struct {
	Results []braveResult `json:"results"`
}

type braveResult struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// Text executes a web search query against the Brave Search API.
func (p *BraveProvider) Text(ctx context.Context, query string, opts Options) ([]Result, error) {
	body, err := p.get(ctx, p.webURL, query, opts)
	if err != nil {
		return nil, err
	}
	var decoded braveWebResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode brave response: %w", err)
	}
	return convertBrave(decoded.Web.Results), nil
}

// News executes a news search query against the Brave Search API.
func (p *BraveProvider) News(ctx context.Context, query string, opts Options) ([]Result, error) {
	body, err := p.get(ctx, p.newsURL, query, opts)
	if err != nil {
		return nil, err
	}
	var decoded braveNewsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode brave news response: %w", err)
	}
	return convertBrave(decoded.Results), nil
}

func (p *BraveProvider) get(ctx context.Context, rawURL, query string, opts Options) ([]byte, error) {
	endpoint, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse brave url: %w", err)
	}
	q := endpoint.Query()
	q.Set("q", query)
	if opts.Limit > 0 {
		q.Set("count", fmt.Sprintf("%d", opts.Limit))
	}
	if fresh := braveFreshness(opts.Freshness); fresh != "" {
		q.Set("freshness", fresh)
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create brave request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("brave request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read brave response: %w", err)
	}
	return body, nil
}

func braveFreshness(f Freshness) string {
	switch f {
	case FreshnessDay:
		return "pd"
	case FreshnessWeek:
		return "pw"
	case FreshnessMonth:
		return "pm"
	default:
		return ""
	}
}

func convertBrave(items []braveResult) []Result {
	results := make([]Result, 0, len(items))
	for _, item := range items {
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: strings.TrimSpace(item.Description),
			Score:   item.Score,
		})
	}
	return results
}
