package retrieval

import (
	"rawi/pkg/config"
)

const defaultModel = "Islamic-RAG"

// defaultPreferredSources is the corpus whitelist passed upstream so
// answers come from vetted Islamic references.
var defaultPreferredSources = []string{
	"islamqa", "islamweb", "sunnah", "quran", "tafsir", "dorar", "islamonline", "shamela",
}

// Config for the corpus client. The API credentials default to the LLM
// ones because Fanar serves both models behind the same endpoint.
type Config struct {
	Model            string
	APIKey           string
	APIURL           string
	MaxTokens        int
	PreferredSources []string
}

func LoadConfig() Config {
	return Config{
		Model:            config.GetEnv("RAG_MODEL", defaultModel),
		APIKey:           config.GetEnv("LLM_API_KEY", ""),
		APIURL:           config.GetEnv("LLM_API_URL", ""),
		MaxTokens:        config.GetEnvInt("LLM_MAX_TOKENS", 2048),
		PreferredSources: config.GetEnvList("RAG_PREFERRED_SOURCES", defaultPreferredSources),
	}
}
