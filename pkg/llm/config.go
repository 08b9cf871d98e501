package llm

import (
	"context"
	"fmt"
	"strings"

	"rawi/pkg/config"
	"rawi/pkg/logging"
)

type Config struct {
	Provider  string
	Model     string
	APIKey    string
	APIURL    string
	MaxTokens int
}

func LoadConfig() Config {
	return Config{
		Provider:  config.GetEnv("LLM_PROVIDER", "fanar"),
		Model:     config.GetEnv("LLM_MODEL", ""),
		APIKey:    config.GetEnv("LLM_API_KEY", ""),
		APIURL:    config.GetEnv("LLM_API_URL", ""),
		MaxTokens: config.GetEnvInt("LLM_MAX_TOKENS", defaultMaxTokens),
	}
}

func NewProvider(ctx context.Context, cfg Config, logger logging.Logger) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "fanar":
		return NewFanarProvider(cfg, logger), nil
	case "openai":
		return NewOpenAIProvider(cfg, logger), nil
	case "ollama":
		return NewOllamaProvider(cfg, logger), nil
	case "gemini":
		provider, err := NewGeminiProvider(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
