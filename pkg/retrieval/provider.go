// Package retrieval queries a curated Islamic knowledge corpus and returns
// ranked passages with their source identifiers.
package retrieval

import (
	"context"
	"errors"
)

// Hit is one ranked passage from the corpus. SourceID is the passage's
// source URL when the corpus provides one, otherwise its source name.
type Hit struct {
	Text     string `json:"text"`
	SourceID string `json:"source_id"`
}

// ErrUnavailable covers network failures and upstream errors.
var ErrUnavailable = errors.New("retrieval provider unavailable")

type Provider interface {
	Search(ctx context.Context, query string) ([]Hit, error)
}
