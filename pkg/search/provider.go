package search

import (
	"context"
	"errors"
)

// Provider defines the interface for web search providers.
type Provider interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error)
}

// Result represents a single search result.
type Result struct {
	Title   string
	URL     string
	Content string
	Score   float64
}

// SearchOptions controls search behavior across providers.
type SearchOptions struct {
	Limit       int
	SearchDepth string
}

var (
	// ErrNotConfigured means the provider is missing a required
	// credential or endpoint. Web search is an optional capability, so
	// callers treat this as "run without web search", not as a failure.
	ErrNotConfigured = errors.New("search provider not configured")
	// ErrUnavailable covers network failures and upstream errors.
	ErrUnavailable = errors.New("search provider unavailable")
)
