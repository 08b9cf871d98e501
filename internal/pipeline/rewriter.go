package pipeline

import (
	"context"
	"regexp"
	"strings"
	"time"

	"rawi/pkg/llm"
	"rawi/pkg/logging"
)

const (
	queryRewriteTimeout = 10 * time.Second
	rewriteMaxTokens    = 256
)

// rewritePrefixRE strips scaffolding some models put in front of the query
// even when told not to ("Rewritten query: ...", "1. ...").
var rewritePrefixRE = regexp.MustCompile(`(?i)^(?:\d+\.\s*)?(?:rewritten\s+query\s*:\s*)?`)

// QueryRewriter canonicalizes the raw user question before grounding. It
// never fails the request: any provider problem falls back to the original
// text and reports the rewrite as degraded.
type QueryRewriter struct {
	llm    llm.Provider
	logger logging.Logger
}

func NewQueryRewriter(provider llm.Provider, logger logging.Logger) *QueryRewriter {
	return &QueryRewriter{llm: provider, logger: logger}
}

// Rewrite returns the canonicalized query and whether the rewrite degraded
// to the original text. The input is assumed non-empty; the orchestrator
// rejects empty queries before this stage runs.
func (qr *QueryRewriter) Rewrite(ctx context.Context, query Query) (RewrittenQuery, bool) {
	fallback := RewrittenQuery{Text: query.Text, Original: query}
	if qr == nil || qr.llm == nil {
		return fallback, false
	}

	ctx, cancel := context.WithTimeout(ctx, queryRewriteTimeout)
	defer cancel()

	prompt := renderPrompt(rewritePrompt, placeholderQuestion, query.Text)
	completion, err := qr.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, llm.Options{MaxTokens: rewriteMaxTokens})
	if err != nil {
		qr.logger.WithError(err).Warn("Query rewrite failed, using original query")
		return fallback, true
	}

	rewritten := cleanRewrittenQuery(completion.Text)
	if rewritten == "" {
		qr.logger.Warn("Query rewrite returned no usable text, using original query")
		return fallback, true
	}
	return RewrittenQuery{Text: rewritten, Original: query}, false
}

// cleanRewrittenQuery extracts the query from the model output: first
// non-empty line, known prefixes stripped, surrounding quotes removed.
func cleanRewrittenQuery(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = rewritePrefixRE.ReplaceAllString(line, "")
		line = strings.Trim(line, `"'`)
		return strings.TrimSpace(line)
	}
	return ""
}
