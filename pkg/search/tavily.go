package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"rawi/pkg/clients"
	"rawi/pkg/logging"
)

const defaultTavilyURL = "https://api.tavily.com/search"

// TavilyProvider implements the Tavily Search API.
type TavilyProvider struct {
	apiKey      string
	apiURL      string
	client      *http.Client
	executor    failsafe.Executor[*http.Response]
	shouldRetry func(*http.Response, error) bool
}

// NewTavilyProvider creates a Tavily search provider.
func NewTavilyProvider(apiKey, apiURL string, logger logging.Logger) (*TavilyProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: tavily api key is required", ErrNotConfigured)
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultTavilyURL
	}

	execCfg := clients.DefaultHTTPExecutorConfig()
	execCfg.Breaker = "search"
	execCfg.Logger = logger

	return &TavilyProvider{
		apiKey:      apiKey,
		apiURL:      apiURL,
		client:      &http.Client{Timeout: 15 * time.Second},
		executor:    clients.NewHTTPExecutor(execCfg),
		shouldRetry: execCfg.ShouldRetry,
	}, nil
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search executes a query against the Tavily Search API.
func (p *TavilyProvider) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	payload, err := json.Marshal(tavilyRequest{
		APIKey:      p.apiKey,
		Query:       query,
		SearchDepth: opts.SearchDepth,
		MaxResults:  opts.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	resp, err := clients.ExecuteHTTP(ctx, p.executor, p.client, p.shouldRetry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", errors.Join(ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("tavily: %w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("tavily: %w: decode: %v", ErrUnavailable, err)
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
