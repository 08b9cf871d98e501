package pipeline

import (
	"context"
	"fmt"
	"strings"

	"rawi/pkg/llm"
	"rawi/pkg/logging"
)

// Synthesizer turns the query and its grounding hits into the final cited
// answer. It is the only stage whose generation failure fails the request;
// everything upstream degrades instead.
type Synthesizer struct {
	llm         llm.Provider
	tokenBudget int
	strictness  Strictness
	metrics     *Metrics
	logger      logging.Logger
}

type SynthesizerConfig struct {
	LLM               llm.Provider
	PromptTokenBudget int
	Strictness        Strictness
	Metrics           *Metrics
	Logger            logging.Logger
}

func NewSynthesizer(cfg SynthesizerConfig) *Synthesizer {
	budget := cfg.PromptTokenBudget
	if budget <= 0 {
		budget = defaultPromptTokenBudget
	}
	strictness := cfg.Strictness
	if strictness != StrictnessFlag {
		strictness = StrictnessDrop
	}
	return &Synthesizer{
		llm:         cfg.LLM,
		tokenBudget: budget,
		strictness:  strictness,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// Synthesize produces the answer, any citation warnings, and the reasoning
// trace when thinking mode was requested. With no usable grounding hits it
// falls back to a general-knowledge answer with no references.
func (s *Synthesizer) Synthesize(ctx context.Context, rq RewrittenQuery, results []ToolResult, thinking bool) (Answer, []Warning, string, error) {
	block, consumed := serializeResults(results, s.tokenBudget)

	var prompt string
	if len(consumed) == 0 {
		prompt = renderPrompt(synthesisUngroundedPrompt, placeholderQuestion, rq.Text)
	} else {
		prompt = renderPrompt(synthesisGroundedPrompt,
			placeholderSources, block,
			placeholderQuestion, rq.Text,
		)
	}
	s.metrics.observePromptTokens(StateSynthesizing, estimateTokens(prompt))

	completion, err := s.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, llm.Options{Thinking: thinking})
	if err != nil {
		return Answer{}, nil, "", err
	}
	if strings.TrimSpace(completion.Text) == "" {
		return Answer{}, nil, "", fmt.Errorf("%w: empty completion text", llm.ErrMalformedResponse)
	}

	text, references, dropped := resolveCitations(completion.Text, consumed)
	if text == "" {
		return Answer{}, nil, "", fmt.Errorf("%w: completion contained only invalid citations", llm.ErrMalformedResponse)
	}

	var warnings []Warning
	if dropped > 0 {
		s.metrics.recordDroppedCitations(s.strictness, dropped)
		s.logger.WithField("dropped", dropped).Warn("Removed citations with no matching source")
		if s.strictness == StrictnessFlag {
			warnings = append(warnings, WarnUngroundedClaim)
		}
	}

	return Answer{Text: text, References: references}, warnings, completion.ReasoningTrace, nil
}

// serializeResults renders grounding hits as the tagged source block fed to
// the model and returns the subset that fit the token budget. Citation tags
// are resolved against that subset, so a hit cut for budget can never be
// cited. Corpus and web entries are numbered separately because the tag ids
// live in per-kind spaces.
func serializeResults(results []ToolResult, budget int) (string, []ToolResult) {
	if budget <= 0 {
		budget = defaultPromptTokenBudget
	}

	var block strings.Builder
	consumed := make([]ToolResult, 0, len(results))
	counts := make(map[ResultKind]int, 2)
	used := 0
	for _, result := range results {
		text := trimToTokenLimit(result.Text, maxSourceTokens)
		if text == "" {
			continue
		}
		entry := formatSourceEntry(counts[result.Kind]+1, result, text)
		cost := estimateTokens(entry)
		if len(consumed) > 0 && used+cost > budget {
			break
		}
		if block.Len() > 0 {
			block.WriteString("\n")
		}
		block.WriteString(entry)
		used += cost
		counts[result.Kind]++
		consumed = append(consumed, result)
	}
	return block.String(), consumed
}

func formatSourceEntry(id int, result ToolResult, text string) string {
	if result.Kind == KindWeb {
		title := result.Title
		if title == "" {
			title = result.SourceID
		}
		return fmt.Sprintf("<Internet id=%d>%s (%s): %s</Internet>", id, title, result.SourceID, text)
	}
	return fmt.Sprintf("<RAG id=%d>%s: %s</RAG>", id, result.SourceID, text)
}
