package llm

import (
	"context"
	"strings"

	"rawi/pkg/logging"
)

// OpenAIProvider reuses the Fanar client against OpenAI's API. Reasoning
// via the thinking roles is a Fanar extension, so it stays off here.
type OpenAIProvider struct {
	compat *FanarProvider
}

func NewOpenAIProvider(cfg Config, logger logging.Logger) *OpenAIProvider {
	cfgCopy := cfg
	if strings.TrimSpace(cfgCopy.APIURL) == "" {
		cfgCopy.APIURL = "https://api.openai.com/v1"
	}
	compat := NewFanarProvider(cfgCopy, logger)
	compat.thinkingEnabled = false
	return &OpenAIProvider{compat: compat}
}

func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	return p.compat.Complete(ctx, messages, opts)
}

func (p *OpenAIProvider) Ping(ctx context.Context) error {
	return p.compat.Ping(ctx)
}
