package agents

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/DextroByt/Sentinel-AI/pkg/logging"
	"github.com/DextroByt/Sentinel-AI/pkg/search"
)

// OfficialSourceAgent probes government and authority channels through
// three concurrent vectors: direct portal scans, a search restricted to
// official domains, and a search restricted to official social handles.
type OfficialSourceAgent struct {
	portals  []string
	domains  []string
	handles  []string
	provider search.Provider
	client   *http.Client
	logger   logging.Logger
}

// OfficialConfig configures the agent. The lists come from service
// configuration so tests can shrink them.
type OfficialConfig struct {
	PortalURLs      []string
	TrustedDomains  []string
	OfficialHandles []string
	Provider        search.Provider
	Timeout         time.Duration
	Logger          logging.Logger
}

func NewOfficialSourceAgent(cfg OfficialConfig) *OfficialSourceAgent {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OfficialSourceAgent{
		portals:  cfg.PortalURLs,
		domains:  cfg.TrustedDomains,
		handles:  cfg.OfficialHandles,
		provider: cfg.Provider,
		client:   &http.Client{Timeout: timeout},
		logger:   cfg.Logger,
	}
}

func (a *OfficialSourceAgent) Kind() EvidenceKind { return KindOfficial }

// Gather runs all three probes concurrently and concatenates what they
// find. Individual probe failures contribute nothing.
func (a *OfficialSourceAgent) Gather(ctx context.Context, claimText string) []EvidenceItem {
	tokens := ExtractTokens(claimText, 6)
	if len(tokens) < 2 {
		return sentinelItem(KindOfficial, "Claim text too vague for official verification.")
	}
	query := strings.Join(tokens, " ")

	var mu sync.Mutex
	var items []EvidenceItem
	add := func(found []EvidenceItem) {
		mu.Lock()
		items = append(items, found...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		add(a.searchOfficialWeb(gctx, query))
		return nil
	})
	g.Go(func() error {
		add(a.searchOfficialSocial(gctx, query))
		return nil
	})
	for _, portal := range a.portals {
		portal := portal
		g.Go(func() error {
			if item, ok := a.scanPortal(gctx, portal, tokens); ok {
				add([]EvidenceItem{item})
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(items) == 0 {
		return sentinelItem(KindOfficial, "No direct confirmation found on monitored government portals or official social media channels.")
	}
	return items
}

// scanPortal fetches one portal homepage and scans its rendered text for
// co-occurrence of at least two extracted keywords. A match yields a
// bounded context snippet around the first keyword hit.
func (a *OfficialSourceAgent) scanPortal(ctx context.Context, portalURL string, tokens []string) (EvidenceItem, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, portalURL, nil)
	if err != nil {
		return EvidenceItem{}, false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) SentinelWatch/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		// Individual portals fail often; stay quiet to keep speed up.
		return EvidenceItem{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return EvidenceItem{}, false
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return EvidenceItem{}, false
	}
	doc.Find("script, style, nav, footer").Remove()
	text := strings.ToLower(strings.Join(strings.Fields(doc.Text()), " "))

	var found []string
	for _, token := range tokens {
		if strings.Contains(text, token) {
			found = append(found, token)
		}
	}
	if len(found) < 2 {
		return EvidenceItem{}, false
	}

	idx := strings.Index(text, found[0])
	start := idx - 50
	if start < 0 {
		start = 0
	}
	end := idx + 100
	if end > len(text) {
		end = len(text)
	}
	return EvidenceItem{
		Kind:    KindOfficial,
		Title:   fmt.Sprintf("Direct match on %s", portalURL),
		URL:     portalURL,
		Snippet: fmt.Sprintf("...%s...", strings.TrimSpace(text[start:end])),
	}, true
}

func (a *OfficialSourceAgent) searchOfficialWeb(ctx context.Context, query string) []EvidenceItem {
	results, err := a.provider.Text(ctx, scopeQuery(query, a.domains), search.Options{Limit: 5, Freshness: search.FreshnessWeek})
	if err != nil {
		if a.logger != nil {
			a.logger.WithError(err).Debug("Official web search failed")
		}
		return nil
	}
	return convertResults(KindOfficial, results)
}

func (a *OfficialSourceAgent) searchOfficialSocial(ctx context.Context, query string) []EvidenceItem {
	results, err := a.provider.Text(ctx, scopeQuery(query, a.handles), search.Options{Limit: 5, Freshness: search.FreshnessWeek})
	if err != nil {
		if a.logger != nil {
			a.logger.WithError(err).Debug("Official social search failed")
		}
		return nil
	}
	return convertResults(KindOfficial, results)
}

// scopeQuery appends site: operators so the backend only surfaces results
// from the allowlist.
func scopeQuery(query string, sites []string) string {
	if len(sites) == 0 {
		return query
	}
	ops := make([]string, 0, len(sites))
	for _, site := range sites {
		ops = append(ops, "site:"+site)
	}
	return fmt.Sprintf("%s (%s)", query, strings.Join(ops, " OR "))
}

func convertResults(kind EvidenceKind, results []search.Result) []EvidenceItem {
	items := make([]EvidenceItem, 0, len(results))
	for _, r := range results {
		items = append(items, EvidenceItem{
			Kind:    kind,
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Snippet,
		})
	}
	return items
}
