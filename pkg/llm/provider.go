package llm

import (
	"context"
	"errors"
)

// Message roles shared by every provider. The Fanar thinking protocol adds
// private roles on top of these; see fanar.go.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single completion call.
type Options struct {
	// MaxTokens caps the generated output. Zero means the provider default.
	MaxTokens int
	// Thinking asks the provider to reason before answering. Providers
	// without reasoning support run a plain completion instead.
	Thinking bool
}

// Completion is the outcome of a single completion call.
type Completion struct {
	// Text is the generated answer with any reasoning stripped out.
	Text string
	// ReasoningTrace is the model's reasoning when Thinking was requested
	// and the provider produced one. It is never part of Text.
	ReasoningTrace string
	// FinishReason is the provider's stop reason, e.g. "stop" or "length".
	FinishReason string
}

// Sentinel errors so callers can classify upstream failures without
// inspecting provider-specific details.
var (
	ErrUnavailable       = errors.New("llm provider unavailable")
	ErrRateLimited       = errors.New("llm provider rate limited")
	ErrMalformedResponse = errors.New("llm provider returned malformed response")
)

type Provider interface {
	Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error)
}

// Pinger is implemented by providers that can cheaply verify upstream
// reachability. Health checks use it when the provider offers one.
type Pinger interface {
	Ping(ctx context.Context) error
}
