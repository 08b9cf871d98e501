package search

import (
	"fmt"

	"rawi/pkg/config"
	"rawi/pkg/logging"
)

const (
	providerTavily  = "tavily"
	providerBrave   = "brave"
	providerSearxng = "searxng"
)

// Config holds environment configuration for search providers.
type Config struct {
	Provider string
	APIKey   string
	APIURL   string
}

// LoadConfig loads search configuration from the environment.
func LoadConfig() Config {
	return Config{
		Provider: config.GetEnv("SEARCH_PROVIDER", providerTavily),
		APIKey:   config.GetEnv("SEARCH_API_KEY", ""),
		APIURL:   config.GetEnv("SEARCH_API_URL", ""),
	}
}

// NewProvider creates a search provider from configuration. A missing
// credential or endpoint yields ErrNotConfigured; an unknown provider
// name is a hard error.
func NewProvider(cfg Config, logger logging.Logger) (Provider, error) {
	switch cfg.Provider {
	case providerTavily:
		return NewTavilyProvider(cfg.APIKey, cfg.APIURL, logger)
	case providerBrave:
		return NewBraveProvider(cfg.APIKey, cfg.APIURL, logger)
	case providerSearxng:
		return NewSearxngProvider(cfg.APIURL, logger)
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Provider)
	}
}
