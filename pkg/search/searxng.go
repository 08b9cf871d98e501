package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"rawi/pkg/clients"
	"rawi/pkg/logging"
)

// SearxngProvider implements the SearXNG API.
type SearxngProvider struct {
	apiURL      string
	client      *http.Client
	executor    failsafe.Executor[*http.Response]
	shouldRetry func(*http.Response, error) bool
}

// NewSearxngProvider creates a SearXNG provider.
func NewSearxngProvider(apiURL string, logger logging.Logger) (*SearxngProvider, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("%w: searxng api url is required", ErrNotConfigured)
	}

	execCfg := clients.DefaultHTTPExecutorConfig()
	execCfg.Breaker = "search"
	execCfg.Logger = logger

	return &SearxngProvider{
		apiURL:      strings.TrimRight(apiURL, "/"),
		client:      &http.Client{Timeout: 15 * time.Second},
		executor:    clients.NewHTTPExecutor(execCfg),
		shouldRetry: execCfg.ShouldRetry,
	}, nil
}

type searxngResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search executes a query against a SearXNG instance.
func (p *SearxngProvider) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	endpoint, err := url.Parse(p.apiURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("parse searxng url: %w", err)
	}
	q := endpoint.Query()
	q.Set("q", query)
	q.Set("format", "json")
	if opts.Limit > 0 {
		q.Set("count", fmt.Sprintf("%d", opts.Limit))
	}
	endpoint.RawQuery = q.Encode()

	resp, err := clients.ExecuteHTTP(ctx, p.executor, p.client, p.shouldRetry, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("searxng request failed: %w", errors.Join(ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("searxng: %w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("searxng: %w: decode: %v", ErrUnavailable, err)
	}

	results := make([]Result, 0, len(decoded.Results))
	for _, item := range decoded.Results {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.URL,
			Content: content,
			Score:   item.Score,
		})
	}

	return results, nil
}
