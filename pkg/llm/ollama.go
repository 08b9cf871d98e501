package llm

import (
	"context"
	"strings"

	"rawi/pkg/logging"
)

// OllamaProvider targets a local Ollama instance through its
// OpenAI-compatible endpoint.
type OllamaProvider struct {
	compat *FanarProvider
}

func NewOllamaProvider(cfg Config, logger logging.Logger) *OllamaProvider {
	cfgCopy := cfg
	if strings.TrimSpace(cfgCopy.APIURL) == "" {
		cfgCopy.APIURL = "http://localhost:11434/v1"
	}
	compat := NewFanarProvider(cfgCopy, logger)
	compat.thinkingEnabled = false
	return &OllamaProvider{compat: compat}
}

func (p *OllamaProvider) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	return p.compat.Complete(ctx, messages, opts)
}

func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.compat.Ping(ctx)
}
