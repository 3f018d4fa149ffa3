package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBraveText(t *testing.T) {
	t.Parallel()

	errCh := make(chan error, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "brave-key" {
			errCh <- fmt.Errorf("missing brave api key")
			return
		}
		if got := r.URL.Query().Get("q"); got != "dam burst" {
			errCh <- fmt.Errorf("expected query 'dam burst', got %q", got)
			return
		}
		if got := r.URL.Query().Get("freshness"); got != "pw" {
			errCh <- fmt.Errorf("expected freshness pw, got %q", got)
			return
		}
		fmt.Fprint(w, `{"web":{"results":[{"title":"Dam bursts","url":"https://example.com/dam","description":" flooding reported ","score":0.9}]}}`)
	}))
	defer server.Close()

	provider, err := NewBraveProvider("brave-key", server.URL+"/web/search")
	if err != nil {
		t.Fatalf("NewBraveProvider: %v", err)
	}

	results, err := provider.Text(context.Background(), "dam burst", Options{Limit: 3, Freshness: FreshnessWeek})
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	select {
	case err := <-errCh:
		t.Fatal(err)
	default:
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Snippet != "flooding reported" {
		t.Fatalf("expected trimmed snippet, got %q", results[0].Snippet)
	}
}

func TestBraveNewsUsesNewsEndpoint(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/news/search" {
			t.Errorf("expected /news/search, got %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"results":[{"title":"n","url":"https://example.com/n","description":"d"}]}`)
	}))
	defer server.Close()

	provider, err := NewBraveProvider("brave-key", server.URL+"/web/search")
	if err != nil {
		t.Fatalf("NewBraveProvider: %v", err)
	}
	results, err := provider.News(context.Background(), "quake", Options{})
	if err != nil {
		t.Fatalf("News: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestBraveErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider, err := NewBraveProvider("brave-key", server.URL+"/web/search")
	if err != nil {
		t.Fatalf("NewBraveProvider: %v", err)
	}
	if _, err := provider.Text(context.Background(), "anything", Options{}); err == nil {
		t.Fatal("expected error on 429 status")
	}
}

func TestNewProviderUnknown(t *testing.T) {
	t.Parallel()

	if _, err := NewProvider(Config{Provider: "bing"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
