package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Wire</title>
    <item>
      <title>Dam burst feared in city</title>
      <link>https://example.com/dam</link>
      <description>Unverified reports of flooding</description>
    </item>
    <item>
      <title>No link item</title>
      <description>dropped</description>
    </item>
  </channel>
</rss>`

func TestFetchAllSkipsBrokenFeeds(t *testing.T) {
	t.Parallel()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, feedXML)
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	agg := NewRSSAggregator(RSSConfig{FeedURLs: []string{good.URL, bad.URL}})
	signals := agg.FetchAll(context.Background())

	if len(signals) != 1 {
		t.Fatalf("expected 1 signal (broken feed skipped, linkless item dropped), got %d", len(signals))
	}
	s := signals[0]
	if s.Title != "Dam burst feared in city" {
		t.Fatalf("unexpected title %q", s.Title)
	}
	if s.SourceKind != KindFeed {
		t.Fatalf("expected FEED kind, got %s", s.SourceKind)
	}
	if s.SourceName != "Test Wire" {
		t.Fatalf("expected feed title as source name, got %q", s.SourceName)
	}
}

func TestFetchAllEmptyConfig(t *testing.T) {
	t.Parallel()

	agg := NewRSSAggregator(RSSConfig{})
	if signals := agg.FetchAll(context.Background()); len(signals) != 0 {
		t.Fatalf("expected no signals, got %d", len(signals))
	}
}
