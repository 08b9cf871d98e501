package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestBraveSearch(t *testing.T) {
	t.Parallel()

	var gotToken string
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Subscription-Token")
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"web": {"results": [
			{"title": "Eid announcement", "url": "https://example.org/eid", "description": "Eid al-Adha falls on the tenth of Dhul Hijjah.", "score": 0.81},
			{"title": "No description", "url": "https://example.org/none", "description": "", "score": 0.2}
		]}}`))
	}))
	defer server.Close()

	provider, err := NewBraveProvider("brave-key", server.URL, testLogger())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	results, err := provider.Search(context.Background(), "eid al adha date", SearchOptions{Limit: 3})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if gotToken != "brave-key" {
		t.Errorf("subscription token = %q, want %q", gotToken, "brave-key")
	}
	if got := gotQuery.Get("q"); got != "eid al adha date" {
		t.Errorf("q = %q, want %q", got, "eid al adha date")
	}
	if got := gotQuery.Get("count"); got != "3" {
		t.Errorf("count = %q, want %q", got, "3")
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (empty description dropped)", len(results))
	}
	if results[0].Title != "Eid announcement" {
		t.Errorf("title = %q", results[0].Title)
	}
	if results[0].Content != "Eid al-Adha falls on the tenth of Dhul Hijjah." {
		t.Errorf("content = %q", results[0].Content)
	}
}

func TestBraveSearchRejected(t *testing.T) {
	t.Parallel()

	// 401 is not retryable, so the status check path reports it directly.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider, err := NewBraveProvider("expired-key", server.URL, testLogger())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	if _, err := provider.Search(context.Background(), "query", SearchOptions{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestBraveRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := NewBraveProvider("", "", testLogger()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}
