package retrieval

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

const defaultFanarURL = "https://api.fanar.qa/v1"

// FanarRAG queries Fanar's Islamic-RAG model. The upstream answers through
// the chat completion surface and attaches the corpus passages it used as
// references on the reply message.
type FanarRAG struct {
	client      *http.Client
	executor    failsafe.Executor[*http.Response]
	shouldRetry func(*http.Response, error) bool
	apiKey      string
	apiURL      string
	model       string
	maxTokens   int
	preferred   []string
}

func NewFanarRAG(cfg Config, logger logging.Logger) *FanarRAG {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultFanarURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	execCfg := clients.DefaultHTTPExecutorConfig()
	execCfg.Breaker = "retrieval"
	execCfg.Logger = logger

	return &FanarRAG{
		client:      &http.Client{Timeout: 120 * time.Second},
		executor:    clients.NewHTTPExecutor(execCfg),
		shouldRetry: execCfg.ShouldRetry,
		apiKey:      cfg.APIKey,
		apiURL:      apiURL,
		model:       model,
		maxTokens:   cfg.MaxTokens,
		preferred:   cfg.PreferredSources,
	}
}

func (r *FanarRAG) Search(ctx context.Context, query string) ([]Hit, error) {
	payload, err := json.Marshal(ragRequest{
		Model:            r.model,
		Messages:         []ragMessage{{Role: "user", Content: query}},
		MaxTokens:        r.maxTokens,
		PreferredSources: r.preferred,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: marshal request: %w", err)
	}

	resp, err := clients.ExecuteHTTP(ctx, r.executor, r.client, r.shouldRetry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if r.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+r.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: request failed: %w", errors.Join(ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("retrieval: %w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded ragResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("retrieval: %w", ctx.Err())
		}
		return nil, fmt.Errorf("retrieval: %w: decode: %v", ErrUnavailable, err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("retrieval: %w: empty choices", ErrUnavailable)
	}

	message := decoded.Choices[0].Message
	hits := make([]Hit, 0, len(message.References))
	for _, ref := range message.References {
		text := strings.TrimSpace(ref.Content)
		if text == "" {
			continue
		}
		sourceID := ref.URL
		if sourceID == "" {
			sourceID = ref.Source
		}
		if sourceID == "" {
			sourceID = fmt.Sprintf("corpus-%d", ref.Number)
		}
		hits = append(hits, Hit{Text: text, SourceID: sourceID})
	}

	// Some answers come back without itemized references. The grounded
	// answer text itself is still corpus-backed, so surface it as one hit
	// rather than returning nothing.
	if len(hits) == 0 {
		if answer := strings.TrimSpace(message.Content); answer != "" {
			hits = append(hits, Hit{Text: answer, SourceID: "islamic-rag"})
		}
	}
	return hits, nil
}

// Ping checks upstream reachability via the models listing endpoint.
func (r *FanarRAG) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.apiURL+"/models", nil)
	if err != nil {
		return err
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("retrieval: ping failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("retrieval: ping returned status %d", resp.StatusCode)
	}
	return nil
}

type ragRequest struct {
	Model            string       `json:"model"`
	Messages         []ragMessage `json:"messages"`
	MaxTokens        int          `json:"max_tokens,omitempty"`
	PreferredSources []string     `json:"preferred_sources,omitempty"`
}

type ragMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ragResponse struct {
	Choices []struct {
		Message struct {
			Content    string         `json:"content"`
			References []ragReference `json:"references"`
		} `json:"message"`
	} `json:"choices"`
}

type ragReference struct {
	Number  int    `json:"number"`
	Source  string `json:"source"`
	Content string `json:"content"`
	URL     string `json:"url"`
}
