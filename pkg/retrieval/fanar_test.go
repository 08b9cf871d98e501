package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"rawi/pkg/logging"
)

func testLogger() logging.Logger {
	return logging.NewLoggerWithService("retrieval-test")
}

func TestFanarRAGSearch(t *testing.T) {
	t.Parallel()

	errCh := make(chan error, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			errCh <- fmt.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer rag-key" {
			errCh <- fmt.Errorf("unexpected auth header %q", got)
		}
		var req ragRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errCh <- fmt.Errorf("decode request: %w", err)
			return
		}
		if req.Model != "Islamic-RAG" {
			errCh <- fmt.Errorf("unexpected model %q", req.Model)
		}
		if len(req.PreferredSources) != 2 || req.PreferredSources[0] != "quran" {
			errCh <- fmt.Errorf("unexpected preferred_sources %v", req.PreferredSources)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "patience in hardship" {
			errCh <- fmt.Errorf("unexpected messages %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"grounded answer","references":[
			{"number":1,"source":"quran","content":"Indeed, with hardship comes ease.","url":"https://quran.com/94"},
			{"number":2,"source":"sunnah","content":"Patience is light."},
			{"number":3,"source":"tafsir","content":"  "}
		]}}]}`)
	}))
	defer server.Close()

	provider := NewFanarRAG(Config{
		APIURL:           server.URL,
		APIKey:           "rag-key",
		PreferredSources: []string{"quran", "sunnah"},
	}, testLogger())

	hits, err := provider.Search(context.Background(), "patience in hardship")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}

	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2 (blank reference dropped)", len(hits))
	}
	if hits[0].SourceID != "https://quran.com/94" {
		t.Errorf("hits[0].SourceID = %q, want the reference URL", hits[0].SourceID)
	}
	if hits[0].Text != "Indeed, with hardship comes ease." {
		t.Errorf("hits[0].Text = %q", hits[0].Text)
	}
	if hits[1].SourceID != "sunnah" {
		t.Errorf("hits[1].SourceID = %q, want source name fallback", hits[1].SourceID)
	}
}

func TestFanarRAGSearchFallsBackToAnswer(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"answer without itemized references","references":[]}}]}`)
	}))
	defer server.Close()

	provider := NewFanarRAG(Config{APIURL: server.URL}, testLogger())

	hits, err := provider.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].SourceID != "islamic-rag" {
		t.Errorf("SourceID = %q, want %q", hits[0].SourceID, "islamic-rag")
	}
	if hits[0].Text != "answer without itemized references" {
		t.Errorf("Text = %q", hits[0].Text)
	}
}

func TestFanarRAGSearchUnavailable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		},
		{
			name:    "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "not json") },
		},
		{
			name:    "empty choices",
			handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"choices":[]}`) },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			provider := NewFanarRAG(Config{APIURL: server.URL}, testLogger())
			if _, err := provider.Search(context.Background(), "query"); !errors.Is(err, ErrUnavailable) {
				t.Fatalf("error = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"RAG_MODEL", "RAG_PREFERRED_SOURCES", "LLM_API_KEY", "LLM_API_URL", "LLM_MAX_TOKENS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := LoadConfig()

	if cfg.Model != "Islamic-RAG" {
		t.Errorf("Model = %q, want %q", cfg.Model, "Islamic-RAG")
	}
	if len(cfg.PreferredSources) != 8 {
		t.Errorf("PreferredSources has %d entries, want 8", len(cfg.PreferredSources))
	}
	if cfg.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want 2048", cfg.MaxTokens)
	}
}
