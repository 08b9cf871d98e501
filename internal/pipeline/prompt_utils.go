package pipeline

import "strings"

const (
	// defaultPromptTokenBudget caps the serialized grounding block handed
	// to synthesis. Token counts are whitespace estimates, deliberately
	// conservative rather than tokenizer-exact.
	defaultPromptTokenBudget = 6000

	// maxSourceTokens caps a single grounding hit inside the prompt so one
	// long document cannot crowd out the rest.
	maxSourceTokens = 160
)

func estimateTokens(content string) int {
	return len(strings.Fields(content))
}

func trimToTokenLimit(content string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}
	parts := strings.Fields(trimmed)
	if len(parts) <= maxTokens {
		return trimmed
	}
	return strings.Join(parts[:maxTokens], " ")
}
