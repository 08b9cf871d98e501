// Package pipeline implements the request pipeline behind Rawi: rewrite the
// user's question, decide which grounding tools to consult, run them, and
// synthesize a cited answer. One request flows through one Orchestrator call;
// nothing is shared between requests.
package pipeline

// Query is the immutable pipeline input.
type Query struct {
	Text string `json:"text"`
	// Thinking asks the generation provider for an extended reasoning
	// trace during synthesis. The trace never appears in the answer.
	Thinking bool `json:"thinking"`
}

// RewrittenQuery is the canonicalized query with a back-reference to the
// original for traceability.
type RewrittenQuery struct {
	Text     string `json:"text"`
	Original Query  `json:"original"`
}

// ToolDecision is the four-way grounding branch.
type ToolDecision string

const (
	DecisionNone      ToolDecision = "NONE"
	DecisionRetrieval ToolDecision = "RETRIEVAL"
	DecisionWebSearch ToolDecision = "WEB_SEARCH"
	DecisionBoth      ToolDecision = "BOTH"
)

// ResultKind tags which port produced a ToolResult.
type ResultKind string

const (
	KindRetrieval ResultKind = "retrieval"
	KindWeb       ResultKind = "web"
)

// ToolResult is one grounding hit. SourceID is a corpus reference for
// retrieval hits and a URL for web hits.
type ToolResult struct {
	Kind     ResultKind `json:"kind"`
	Text     string     `json:"text"`
	SourceID string     `json:"source_id"`
	// Title is set for web hits that carry a page title.
	Title string `json:"title,omitempty"`
}

// Reference maps an inline citation marker to the source it cites.
type Reference struct {
	Marker   int    `json:"marker"`
	SourceID string `json:"source_id"`
}

// Answer is the terminal artifact: final text plus the references backing
// its inline markers. Every marker left in Text resolves to exactly one
// entry in References, and every entry points at a ToolResult that was
// actually consumed for this request.
type Answer struct {
	Text       string      `json:"text"`
	References []Reference `json:"references"`
}

// Warning is a soft, non-fatal condition surfaced alongside the answer.
type Warning string

const (
	WarnDegradedRewrite  Warning = "degraded_rewrite"
	WarnToolsUnavailable Warning = "tools_unavailable"
	WarnUngroundedClaim  Warning = "ungrounded_claim"
)

// Response is the full pipeline output for one request.
type Response struct {
	Answer         Answer       `json:"answer"`
	RewrittenQuery string       `json:"rewritten_query"`
	Decision       ToolDecision `json:"tool_decision"`
	Results        []ToolResult `json:"tool_results,omitempty"`
	Warnings       []Warning    `json:"warnings,omitempty"`
	ReasoningTrace string       `json:"reasoning_trace,omitempty"`
	ElapsedMS      int64        `json:"elapsed_ms"`
}

// Strictness controls how citations without a matching source are handled.
// Both modes remove them from the text (a dangling marker would break the
// Answer invariant); flag additionally surfaces a warning.
type Strictness string

const (
	StrictnessDrop Strictness = "drop"
	StrictnessFlag Strictness = "flag"
)
