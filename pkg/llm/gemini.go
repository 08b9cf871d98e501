package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider generates completions through the Gemini API. Reasoning
// uses the SDK's thinking support instead of Fanar's role protocol.
type GeminiProvider struct {
	client    *genai.Client
	model     string
	maxTokens int
}

func NewGeminiProvider(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	clientCfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if cfg.APIKey != "" {
		clientCfg.APIKey = cfg.APIKey
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiProvider{client: client, model: model, maxTokens: cfg.MaxTokens}, nil
}

func (p *GeminiProvider) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	config := &genai.GenerateContentConfig{}
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: msg.Content}}}
			continue
		}
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: msg.Content}}})
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	if opts.Thinking {
		config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate failed: %w", errors.Join(ErrUnavailable, err))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: %w: no candidates", ErrMalformedResponse)
	}

	// Thought parts carry the reasoning summary; the rest is the answer.
	var text, trace strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		if part.Thought {
			trace.WriteString(part.Text)
			continue
		}
		text.WriteString(part.Text)
	}
	return &Completion{
		Text:           text.String(),
		ReasoningTrace: strings.TrimSpace(trace.String()),
		FinishReason:   string(resp.Candidates[0].FinishReason),
	}, nil
}
