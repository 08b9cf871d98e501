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

const defaultBraveURL = "https://api.search.brave.com/res/v1/web/search"

// BraveProvider implements the Brave Search API.
type BraveProvider struct {
	apiKey      string
	apiURL      string
	client      *http.Client
	executor    failsafe.Executor[*http.Response]
	shouldRetry func(*http.Response, error) bool
}

// NewBraveProvider creates a Brave search provider.
func NewBraveProvider(apiKey, apiURL string, logger logging.Logger) (*BraveProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: brave api key is required", ErrNotConfigured)
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultBraveURL
	}

	execCfg := clients.DefaultHTTPExecutorConfig()
	execCfg.Breaker = "search"
	execCfg.Logger = logger

	return &BraveProvider{
		apiKey:      apiKey,
		apiURL:      apiURL,
		client:      &http.Client{Timeout: 15 * time.Second},
		executor:    clients.NewHTTPExecutor(execCfg),
		shouldRetry: execCfg.ShouldRetry,
	}, nil
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string  `json:"title"`
			URL         string  `json:"url"`
			Description string  `json:"description"`
			Score       float64 `json:"score"`
		} `json:"results"`
	} `json:"web"`
}

// Search executes a query against the Brave Search API.
func (p *BraveProvider) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	endpoint, err := url.Parse(p.apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse brave url: %w", err)
	}
	q := endpoint.Query()
	q.Set("q", query)
	if opts.Limit > 0 {
		q.Set("count", fmt.Sprintf("%d", opts.Limit))
	}
	endpoint.RawQuery = q.Encode()

	resp, err := clients.ExecuteHTTP(ctx, p.executor, p.client, p.shouldRetry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Subscription-Token", p.apiKey)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("brave request failed: %w", errors.Join(ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("brave: %w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("brave: %w: decode: %v", ErrUnavailable, err)
	}

	results := make([]Result, 0, len(decoded.Web.Results))
	for _, item := range decoded.Web.Results {
		content := strings.TrimSpace(item.Description)
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
