package config

import (
	"strings"
	"time"

	"rawi/pkg/config"
	"rawi/pkg/llm"
	"rawi/pkg/retrieval"
	"rawi/pkg/search"
)

// Config stores environment configuration for Rawi.
type Config struct {
	Port string

	// Provider configuration, loaded by the owning packages.
	LLM       llm.Config
	Retrieval retrieval.Config
	Search    search.Config

	// Pipeline knobs.
	SearchLimit        int
	SearchDepth        string
	RequestTimeout     time.Duration
	PromptTokenBudget  int
	CitationStrictness string
}

// LoadConfig loads the Rawi configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Port:               config.GetEnv("PORT", "18030"),
		LLM:                llm.LoadConfig(),
		Retrieval:          retrieval.LoadConfig(),
		Search:             search.LoadConfig(),
		SearchLimit:        config.GetEnvInt("SEARCH_LIMIT", 3),
		SearchDepth:        config.GetEnv("SEARCH_DEPTH", "advanced"),
		RequestTimeout:     config.GetEnvDuration("REQUEST_TIMEOUT", 120*time.Second),
		PromptTokenBudget:  config.GetEnvInt("PROMPT_TOKEN_BUDGET", 6000),
		CitationStrictness: parseStrictness(config.GetEnv("CITATION_STRICTNESS", "drop")),
	}
}

// parseStrictness normalizes the citation strictness setting. Unknown
// values fall back to "drop", which preserves the no-fabricated-reference
// guarantee without failing requests.
func parseStrictness(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "flag":
		return "flag"
	default:
		return "drop"
	}
}
