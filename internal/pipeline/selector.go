package pipeline

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"rawi/pkg/llm"
	"rawi/pkg/logging"
	"rawi/pkg/retrieval"
	"rawi/pkg/search"
)

const (
	selectorMaxTokens   = 256
	defaultSearchLimit  = 3
	maxSearchLimit      = 20
	defaultSearchDepth  = "advanced"
	maxSnippetRuneCount = 320
	dedupPrefixWords    = 12
)

// Tool invocation tags the selector model is instructed to emit.
var (
	ragTagRE      = regexp.MustCompile(`(?s)<RAG>\s*<query>(.*?)</query>\s*</RAG>`)
	webTagRE      = regexp.MustCompile(`(?s)<InternetSearch>\s*<search_query>(.*?)</search_query>\s*</InternetSearch>`)
	noGroundingRE = regexp.MustCompile(`\bNONE\b`)
)

// ToolSelector decides which grounding ports to consult for a query and
// runs them. Port failures never fail the request: an erroring port
// contributes nothing, and only when every attempted port errors does the
// selector report grounding as unavailable.
type ToolSelector struct {
	llm         llm.Provider
	retrieval   retrieval.Provider
	web         search.Provider
	searchLimit int
	searchDepth string
	metrics     *Metrics
	logger      logging.Logger
}

type ToolSelectorConfig struct {
	LLM       llm.Provider
	Retrieval retrieval.Provider
	// Web is optional; when nil, web search decisions are skipped.
	Web         search.Provider
	SearchLimit int
	SearchDepth string
	Metrics     *Metrics
	Logger      logging.Logger
}

func NewToolSelector(cfg ToolSelectorConfig) *ToolSelector {
	return &ToolSelector{
		llm:         cfg.LLM,
		retrieval:   cfg.Retrieval,
		web:         cfg.Web,
		searchLimit: cfg.SearchLimit,
		searchDepth: cfg.SearchDepth,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// toolPlan is the parsed selection: the grounding branch plus the refined
// per-tool queries the selector model emitted, if any.
type toolPlan struct {
	decision       ToolDecision
	retrievalQuery string
	webQuery       string
}

// Select classifies the query and runs the chosen ports. It returns the
// decision, the ordered grounding hits, and whether grounding was wanted
// but unavailable.
func (ts *ToolSelector) Select(ctx context.Context, rq RewrittenQuery) (ToolDecision, []ToolResult, bool) {
	plan := ts.decide(ctx, rq)
	ts.metrics.recordDecision(plan.decision)
	results, unavailable := ts.execute(ctx, rq, plan)
	return plan.decision, results, unavailable
}

func (ts *ToolSelector) decide(ctx context.Context, rq RewrittenQuery) toolPlan {
	prompt := renderPrompt(selectorPrompt, placeholderQuestion, rq.Text)
	completion, err := ts.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, llm.Options{MaxTokens: selectorMaxTokens})
	if err != nil {
		ts.logger.WithError(err).Warn("Tool selection call failed, defaulting to corpus retrieval")
		return toolPlan{decision: DecisionRetrieval}
	}
	return parsePlan(completion.Text)
}

// parsePlan reads the selector model's output. Tag presence drives the
// decision; anything that matches no tag and no NONE token defaults to
// corpus retrieval, favoring a grounded answer over an unsourced one.
func parsePlan(raw string) toolPlan {
	retrievalQuery, hasRetrieval := firstTagQuery(ragTagRE, raw)
	webQuery, hasWeb := firstTagQuery(webTagRE, raw)
	switch {
	case hasRetrieval && hasWeb:
		return toolPlan{decision: DecisionBoth, retrievalQuery: retrievalQuery, webQuery: webQuery}
	case hasRetrieval:
		return toolPlan{decision: DecisionRetrieval, retrievalQuery: retrievalQuery}
	case hasWeb:
		return toolPlan{decision: DecisionWebSearch, webQuery: webQuery}
	case noGroundingRE.MatchString(raw):
		return toolPlan{decision: DecisionNone}
	default:
		return toolPlan{decision: DecisionRetrieval}
	}
}

func firstTagQuery(re *regexp.Regexp, raw string) (string, bool) {
	matches := re.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return "", false
	}
	for _, match := range matches {
		if query := strings.TrimSpace(match[1]); query != "" {
			return query, true
		}
	}
	return "", true
}

func (ts *ToolSelector) execute(ctx context.Context, rq RewrittenQuery, plan toolPlan) ([]ToolResult, bool) {
	switch plan.decision {
	case DecisionNone:
		return nil, false
	case DecisionRetrieval:
		hits, err := ts.searchCorpus(ctx, queryOr(plan.retrievalQuery, rq.Text))
		if err != nil {
			return nil, true
		}
		return hits, false
	case DecisionWebSearch:
		if ts.web == nil {
			ts.logger.Warn("Web search selected but no provider is configured")
			return nil, true
		}
		hits, err := ts.searchWeb(ctx, queryOr(plan.webQuery, rq.Text))
		if err != nil {
			return nil, true
		}
		return hits, false
	case DecisionBoth:
		return ts.executeBoth(ctx, rq, plan)
	default:
		return nil, false
	}
}

// executeBoth fans out to both ports concurrently. Corpus hits are placed
// ahead of web hits regardless of which call finished first, and a failure
// on one port does not abort the other.
func (ts *ToolSelector) executeBoth(ctx context.Context, rq RewrittenQuery, plan toolPlan) ([]ToolResult, bool) {
	retrievalQuery := queryOr(plan.retrievalQuery, rq.Text)
	webQuery := queryOr(plan.webQuery, rq.Text)

	if ts.web == nil {
		ts.logger.Warn("Web search selected but no provider is configured")
		hits, err := ts.searchCorpus(ctx, retrievalQuery)
		if err != nil {
			return nil, true
		}
		return hits, false
	}

	var (
		corpusHits []ToolResult
		webHits    []ToolResult
		corpusErr  error
		webErr     error
	)
	var group errgroup.Group
	group.Go(func() error {
		corpusHits, corpusErr = ts.searchCorpus(ctx, retrievalQuery)
		return nil
	})
	group.Go(func() error {
		webHits, webErr = ts.searchWeb(ctx, webQuery)
		return nil
	})
	_ = group.Wait()

	if corpusErr != nil && webErr != nil {
		return nil, true
	}
	return dedupResults(append(corpusHits, webHits...)), false
}

func (ts *ToolSelector) searchCorpus(ctx context.Context, query string) ([]ToolResult, error) {
	hits, err := ts.retrieval.Search(ctx, query)
	if err != nil {
		ts.metrics.recordPortFailure("retrieval")
		ts.logger.WithError(err).Warn("Corpus retrieval failed")
		return nil, err
	}

	results := make([]ToolResult, 0, len(hits))
	for _, hit := range hits {
		text := strings.TrimSpace(hit.Text)
		if text == "" {
			continue
		}
		results = append(results, ToolResult{
			Kind:     KindRetrieval,
			Text:     text,
			SourceID: hit.SourceID,
		})
	}
	ts.metrics.observeToolResults("retrieval", len(results))
	return results, nil
}

func (ts *ToolSelector) searchWeb(ctx context.Context, query string) ([]ToolResult, error) {
	limit := ts.searchLimit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	depth := strings.TrimSpace(ts.searchDepth)
	if depth == "" {
		depth = defaultSearchDepth
	}

	found, err := ts.web.Search(ctx, query, search.SearchOptions{
		Limit:       limit,
		SearchDepth: depth,
	})
	if err != nil {
		ts.metrics.recordPortFailure("web")
		ts.logger.WithError(err).Warn("Web search failed")
		return nil, err
	}

	results := make([]ToolResult, 0, len(found))
	for _, result := range found {
		snippet := snippetFromContent(result.Content)
		if snippet == "" {
			continue
		}
		title := strings.TrimSpace(result.Title)
		url := strings.TrimSpace(result.URL)
		if title == "" {
			title = url
		}
		results = append(results, ToolResult{
			Kind:     KindWeb,
			Text:     snippet,
			SourceID: url,
			Title:    title,
		})
	}
	ts.metrics.observeToolResults("web", len(results))
	return results, nil
}

// dedupResults drops near-duplicate hits: same source id, or same leading
// words once whitespace and case are normalized. First occurrence wins, so
// with corpus hits ordered first a corpus hit beats its web duplicate.
func dedupResults(results []ToolResult) []ToolResult {
	seenSource := make(map[string]struct{}, len(results))
	seenText := make(map[string]struct{}, len(results))
	deduped := make([]ToolResult, 0, len(results))
	for _, result := range results {
		textKey := textPrefixKey(result.Text)
		if result.SourceID != "" {
			if _, ok := seenSource[result.SourceID]; ok {
				continue
			}
		}
		if textKey != "" {
			if _, ok := seenText[textKey]; ok {
				continue
			}
		}
		if result.SourceID != "" {
			seenSource[result.SourceID] = struct{}{}
		}
		if textKey != "" {
			seenText[textKey] = struct{}{}
		}
		deduped = append(deduped, result)
	}
	return deduped
}

func textPrefixKey(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return ""
	}
	if len(fields) > dedupPrefixWords {
		fields = fields[:dedupPrefixWords]
	}
	return strings.Join(fields, " ")
}

func queryOr(query, fallback string) string {
	if query != "" {
		return query
	}
	return fallback
}

func snippetFromContent(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	content = strings.Join(strings.Fields(content), " ")
	return truncateRunes(content, maxSnippetRuneCount)
}

func truncateRunes(input string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(input)
	if len(runes) <= limit {
		return input
	}
	if limit == 1 {
		return string(runes[:1])
	}
	return string(runes[:limit-1]) + "…"
}
