package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "LLM_PROVIDER", "LLM_MODEL", "LLM_API_KEY", "LLM_API_URL", "LLM_MAX_TOKENS",
		"RAG_MODEL", "RAG_PREFERRED_SOURCES",
		"SEARCH_PROVIDER", "SEARCH_API_KEY", "SEARCH_API_URL", "SEARCH_LIMIT", "SEARCH_DEPTH",
		"REQUEST_TIMEOUT", "PROMPT_TOKEN_BUDGET", "CITATION_STRICTNESS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := LoadConfig()

	if cfg.Port != "18030" {
		t.Errorf("Port = %q, want %q", cfg.Port, "18030")
	}
	if cfg.LLM.Provider != "fanar" {
		t.Errorf("LLM.Provider = %q, want %q", cfg.LLM.Provider, "fanar")
	}
	if cfg.Retrieval.Model != "Islamic-RAG" {
		t.Errorf("Retrieval.Model = %q, want %q", cfg.Retrieval.Model, "Islamic-RAG")
	}
	if cfg.Search.Provider != "tavily" {
		t.Errorf("Search.Provider = %q, want %q", cfg.Search.Provider, "tavily")
	}
	if cfg.SearchLimit != 3 {
		t.Errorf("SearchLimit = %d, want 3", cfg.SearchLimit)
	}
	if cfg.SearchDepth != "advanced" {
		t.Errorf("SearchDepth = %q, want %q", cfg.SearchDepth, "advanced")
	}
	if cfg.RequestTimeout != 120*time.Second {
		t.Errorf("RequestTimeout = %v, want 120s", cfg.RequestTimeout)
	}
	if cfg.PromptTokenBudget != 6000 {
		t.Errorf("PromptTokenBudget = %d, want 6000", cfg.PromptTokenBudget)
	}
	if cfg.CitationStrictness != "drop" {
		t.Errorf("CitationStrictness = %q, want %q", cfg.CitationStrictness, "drop")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("REQUEST_TIMEOUT", "45s")
	t.Setenv("CITATION_STRICTNESS", "FLAG")
	t.Setenv("SEARCH_LIMIT", "5")

	cfg := LoadConfig()

	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9000")
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("LLM.Provider = %q, want %q", cfg.LLM.Provider, "gemini")
	}
	if cfg.RequestTimeout != 45*time.Second {
		t.Errorf("RequestTimeout = %v, want 45s", cfg.RequestTimeout)
	}
	if cfg.CitationStrictness != "flag" {
		t.Errorf("CitationStrictness = %q, want %q", cfg.CitationStrictness, "flag")
	}
	if cfg.SearchLimit != 5 {
		t.Errorf("SearchLimit = %d, want 5", cfg.SearchLimit)
	}
}

func TestParseStrictnessFallback(t *testing.T) {
	if got := parseStrictness("strict"); got != "drop" {
		t.Errorf("parseStrictness(strict) = %q, want drop", got)
	}
	if got := parseStrictness(" flag "); got != "flag" {
		t.Errorf("parseStrictness(flag) = %q, want flag", got)
	}
}
