package mcpspoke

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rawi/internal/pipeline"
	"rawi/pkg/logging"
	"rawi/pkg/retrieval"
	"rawi/pkg/search"
	"rawi/pkg/version"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AskPipeline runs a question through the full Rawi pipeline (rewrite, tool
// selection, synthesis).
type AskPipeline interface {
	Process(ctx context.Context, query pipeline.Query) (*pipeline.Response, error)
}

// CorpusSearcher queries the curated Islamic knowledge corpus.
type CorpusSearcher interface {
	Search(ctx context.Context, query string) ([]retrieval.Hit, error)
}

// WebSearcher runs web searches.
type WebSearcher interface {
	Search(ctx context.Context, query string, opts search.SearchOptions) ([]search.Result, error)
}

const (
	defaultSearchLimit = 3
	maxSnippetRunes    = 320
)

// Config configures the Rawi spoke MCP server.
type Config struct {
	Pipeline    AskPipeline
	Corpus      CorpusSearcher
	WebSearch   WebSearcher
	Logger      logging.Logger
	SearchLimit int
	SearchDepth string
}

// NewServer creates an MCP server exposing Rawi's tools (ask_rawi,
// search_corpus, search_web) for MCP hosts to call.
func NewServer(cfg Config) *mcp.Server {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "rawi",
		Version: version.Version,
	}, nil)

	registerAskRawi(srv, cfg)
	registerSearchCorpus(srv, cfg)
	registerSearchWeb(srv, cfg)

	return srv
}

// --- ask_rawi ---

type askInput struct {
	Question string `json:"question" jsonschema:"required" jsonschema_description:"Question about an Islamic topic"`
	Thinking bool   `json:"thinking,omitempty" jsonschema_description:"Request an extended reasoning trace alongside the answer"`
}

type askReference struct {
	Marker int    `json:"marker"`
	Source string `json:"source"`
}

type askResponse struct {
	Answer         string         `json:"answer"`
	References     []askReference `json:"references"`
	RewrittenQuery string         `json:"rewritten_query"`
	ToolDecision   string         `json:"tool_decision"`
	Warnings       []string       `json:"warnings,omitempty"`
	ReasoningTrace string         `json:"reasoning_trace,omitempty"`
}

func registerAskRawi(srv *mcp.Server, cfg Config) {
	mcp.AddTool(srv,
		&mcp.Tool{
			Name:        "ask_rawi",
			Description: "Ask a question about an Islamic topic. Runs the full Rawi pipeline (query rewriting, corpus retrieval, web search, synthesis) and returns a cited answer.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, args askInput) (*mcp.CallToolResult, any, error) {
			return handleAskRawi(ctx, args, cfg)
		},
	)
}

func handleAskRawi(ctx context.Context, args askInput, cfg Config) (*mcp.CallToolResult, any, error) {
	if cfg.Pipeline == nil {
		return spokeError("pipeline unavailable")
	}
	question := strings.TrimSpace(args.Question)
	if question == "" {
		return spokeError("question is required")
	}

	start := time.Now()
	resp, err := cfg.Pipeline.Process(ctx, pipeline.Query{Text: question, Thinking: args.Thinking})
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.WithError(err).WithField("question", question).Warn("ask_rawi failed")
		}
		return spokeError(fmt.Sprintf("ask failed: %v", err))
	}
	spokeToolCallsTotal.WithLabelValues("ask_rawi").Inc()
	spokeToolDuration.Observe(time.Since(start).Seconds())

	references := make([]askReference, 0, len(resp.Answer.References))
	for _, ref := range resp.Answer.References {
		references = append(references, askReference{Marker: ref.Marker, Source: ref.SourceID})
	}
	warnings := make([]string, 0, len(resp.Warnings))
	for _, w := range resp.Warnings {
		warnings = append(warnings, string(w))
	}

	return spokeSuccess(askResponse{
		Answer:         resp.Answer.Text,
		References:     references,
		RewrittenQuery: resp.RewrittenQuery,
		ToolDecision:   string(resp.Decision),
		Warnings:       warnings,
		ReasoningTrace: resp.ReasoningTrace,
	})
}

// --- search_corpus ---

type searchCorpusInput struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"Search query to run against the Islamic knowledge corpus"`
}

type corpusHit struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

type searchCorpusResponse struct {
	Query   string      `json:"query"`
	Results []corpusHit `json:"results"`
}

func registerSearchCorpus(srv *mcp.Server, cfg Config) {
	mcp.AddTool(srv,
		&mcp.Tool{
			Name:        "search_corpus",
			Description: "Search the curated Islamic knowledge corpus (Quran, hadith, tafsir, fatwa collections) and return ranked passages with their sources.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, args searchCorpusInput) (*mcp.CallToolResult, any, error) {
			return handleSearchCorpus(ctx, args, cfg)
		},
	)
}

func handleSearchCorpus(ctx context.Context, args searchCorpusInput, cfg Config) (*mcp.CallToolResult, any, error) {
	if cfg.Corpus == nil {
		return spokeError("corpus retrieval unavailable")
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return spokeError("query is required")
	}

	start := time.Now()
	hits, err := cfg.Corpus.Search(ctx, query)
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.WithError(err).WithField("query", query).Warn("spoke corpus search failed")
		}
		return spokeError(fmt.Sprintf("corpus search failed: %v", err))
	}
	spokeToolCallsTotal.WithLabelValues("search_corpus").Inc()
	spokeToolDuration.Observe(time.Since(start).Seconds())
	spokeResultsCount.Observe(float64(len(hits)))
	if cfg.Logger != nil {
		cfg.Logger.WithField("query", query).WithField("results", len(hits)).Debug("spoke corpus search")
	}

	results := make([]corpusHit, 0, len(hits))
	for _, hit := range hits {
		results = append(results, corpusHit{
			Source: hit.SourceID,
			Text:   hit.Text,
		})
	}

	return spokeSuccess(searchCorpusResponse{Query: query, Results: results})
}

// --- search_web ---

type searchWebInput struct {
	Query       string `json:"query" jsonschema:"required" jsonschema_description:"Search query to run against the web"`
	Limit       int    `json:"limit,omitempty" jsonschema_description:"Maximum number of results to return"`
	SearchDepth string `json:"search_depth,omitempty" jsonschema_description:"Search depth: basic or advanced"`
}

type searchWebResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

type searchWebResponse struct {
	Query   string            `json:"query"`
	Results []searchWebResult `json:"results"`
}

func registerSearchWeb(srv *mcp.Server, cfg Config) {
	mcp.AddTool(srv,
		&mcp.Tool{
			Name:        "search_web",
			Description: "Search the public web for current facts (dates, prices, events) that the curated corpus cannot answer.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, args searchWebInput) (*mcp.CallToolResult, any, error) {
			return handleSearchWeb(ctx, args, cfg)
		},
	)
}

func handleSearchWeb(ctx context.Context, args searchWebInput, cfg Config) (*mcp.CallToolResult, any, error) {
	if cfg.WebSearch == nil {
		return spokeError("web search unavailable")
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return spokeError("query is required")
	}

	limit := args.Limit
	if limit <= 0 {
		limit = cfg.SearchLimit
	}
	depth := strings.TrimSpace(args.SearchDepth)
	if depth == "" {
		depth = cfg.SearchDepth
	}
	if depth == "" {
		depth = "basic"
	}

	start := time.Now()
	results, err := cfg.WebSearch.Search(ctx, query, search.SearchOptions{
		Limit:       limit,
		SearchDepth: depth,
	})
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.WithError(err).WithField("query", query).Warn("spoke web search failed")
		}
		return spokeError(fmt.Sprintf("web search failed: %v", err))
	}
	spokeToolCallsTotal.WithLabelValues("search_web").Inc()
	spokeToolDuration.Observe(time.Since(start).Seconds())
	spokeResultsCount.Observe(float64(len(results)))
	if cfg.Logger != nil {
		cfg.Logger.WithField("query", query).WithField("results", len(results)).Debug("spoke web search")
	}

	mapped := make([]searchWebResult, 0, len(results))
	for _, r := range results {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = r.URL
		}
		mapped = append(mapped, searchWebResult{
			Title:   title,
			URL:     strings.TrimSpace(r.URL),
			Snippet: truncate(r.Content, maxSnippetRunes),
			Score:   r.Score,
		})
	}

	return spokeSuccess(searchWebResponse{Query: query, Results: mapped})
}

// --- helpers ---

func spokeError(message string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}, nil, nil
}

func spokeSuccess(result any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return spokeError(fmt.Sprintf("failed to format result: %v", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, result, nil
}

func truncate(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes-1]) + "…"
}
