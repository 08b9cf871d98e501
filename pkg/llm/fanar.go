package llm

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

const (
	defaultFanarURL   = "https://api.fanar.qa/v1"
	defaultFanarModel = "Fanar"
	defaultMaxTokens  = 2048

	// Fanar's reasoning protocol roles. A thinking_user turn asks the
	// model to reason first; a thinking turn feeds the captured trace
	// back for the final answer.
	roleThinkingUser = "thinking_user"
	roleThinking     = "thinking"

	thinkCloseTag      = "</think>"
	finishReasonLength = "length"
)

// FanarProvider talks to Fanar's OpenAI-compatible chat completion API.
// It also backs the openai and ollama providers, which only differ in
// endpoint defaults and reasoning support.
type FanarProvider struct {
	client      *http.Client
	executor    failsafe.Executor[*http.Response]
	shouldRetry func(*http.Response, error) bool
	apiKey      string
	apiURL      string
	model       string
	maxTokens   int

	// thinkingEnabled gates the two-step reasoning flow. Only the Fanar
	// API understands the thinking roles.
	thinkingEnabled bool
}

func NewFanarProvider(cfg Config, logger logging.Logger) *FanarProvider {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultFanarURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultFanarModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	execCfg := clients.DefaultHTTPExecutorConfig()
	execCfg.Breaker = "llm"
	execCfg.Logger = logger
	// 429 is not retried: it must reach the status check so callers see
	// ErrRateLimited instead of a generic exhausted-retries failure.
	execCfg.ShouldRetry = func(resp *http.Response, err error) bool {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return false
		}
		return clients.DefaultShouldRetry(resp, err)
	}

	return &FanarProvider{
		client:          &http.Client{Timeout: 120 * time.Second},
		executor:        clients.NewHTTPExecutor(execCfg),
		shouldRetry:     execCfg.ShouldRetry,
		apiKey:          cfg.APIKey,
		apiURL:          apiURL,
		model:           model,
		maxTokens:       maxTokens,
		thinkingEnabled: true,
	}
}

func (p *FanarProvider) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	if opts.Thinking && p.thinkingEnabled {
		return p.completeThinking(ctx, messages, maxTokens)
	}
	content, finish, err := p.chat(ctx, messages, maxTokens)
	if err != nil {
		return nil, err
	}
	return &Completion{Text: content, FinishReason: finish}, nil
}

// completeThinking runs Fanar's two-step reasoning flow: the last user turn
// is sent as thinking_user so the model emits its reasoning. When the output
// carries a </think> tag or stopped on the length limit, the text before the
// tag is the trace; it is fed back as a thinking turn (with the original
// role restored) and a second request produces the final answer. Otherwise
// the first output already is the answer.
func (p *FanarProvider) completeThinking(ctx context.Context, messages []Message, maxTokens int) (*Completion, error) {
	prepared := make([]Message, len(messages))
	copy(prepared, messages)
	for i := len(prepared) - 1; i >= 0; i-- {
		if prepared[i].Role == RoleUser {
			prepared[i].Role = roleThinkingUser
			break
		}
	}

	content, finish, err := p.chat(ctx, prepared, maxTokens)
	if err != nil {
		return nil, err
	}

	truncated := finish == finishReasonLength
	if !strings.Contains(content, thinkCloseTag) && !truncated {
		return &Completion{Text: content, FinishReason: finish}, nil
	}

	trace := content
	if idx := strings.Index(content, thinkCloseTag); idx >= 0 {
		trace = content[:idx]
	}
	trace = trimThinkingTrace(trace)

	for i := len(prepared) - 1; i >= 0; i-- {
		if prepared[i].Role == roleThinkingUser {
			prepared[i].Role = RoleUser
			break
		}
	}
	followup := append(prepared, Message{Role: roleThinking, Content: trace})

	answer, finalFinish, err := p.chat(ctx, followup, maxTokens)
	if err != nil {
		return nil, err
	}
	return &Completion{Text: answer, ReasoningTrace: trace, FinishReason: finalFinish}, nil
}

func trimThinkingTrace(raw string) string {
	trace := strings.TrimSpace(raw)
	trace = strings.TrimPrefix(trace, "<think>")
	return strings.TrimSpace(trace)
}

func (p *FanarProvider) chat(ctx context.Context, messages []Message, maxTokens int) (string, string, error) {
	payload, err := json.Marshal(chatCompletionRequest{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", "", fmt.Errorf("fanar: marshal request: %w", err)
	}

	resp, err := clients.ExecuteHTTP(ctx, p.executor, p.client, p.shouldRetry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if p.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("fanar: request failed: %w", errors.Join(ErrUnavailable, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", "", fmt.Errorf("fanar: %w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return "", "", fmt.Errorf("fanar: %w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if ctx.Err() != nil {
			return "", "", fmt.Errorf("fanar: %w", ctx.Err())
		}
		return "", "", fmt.Errorf("fanar: %w: %v", ErrMalformedResponse, err)
	}
	if len(decoded.Choices) == 0 {
		return "", "", fmt.Errorf("fanar: %w: empty choices", ErrMalformedResponse)
	}
	choice := decoded.Choices[0]
	return choice.Message.Content, choice.FinishReason, nil
}

// Ping checks upstream reachability via the models listing endpoint.
func (p *FanarProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/models", nil)
	if err != nil {
		return err
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fanar: ping failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("fanar: ping returned status %d", resp.StatusCode)
	}
	return nil
}

type chatCompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}
