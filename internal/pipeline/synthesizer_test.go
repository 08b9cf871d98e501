package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rawi/pkg/llm"
)

func testSynthesizer(provider *fakeLLM, strictness Strictness) *Synthesizer {
	return NewSynthesizer(SynthesizerConfig{
		LLM:        provider,
		Strictness: strictness,
		Logger:     testLogger(),
	})
}

func groundingResults() []ToolResult {
	return []ToolResult{
		{Kind: KindRetrieval, Text: "Fasting is prescribed for the believers.", SourceID: "quran-2-183"},
		{Kind: KindWeb, Text: "Ramadan begins tomorrow according to the sighting committee.", SourceID: "https://example.com/moon", Title: "Moon sighting"},
	}
}

func TestSynthesizeGrounded(t *testing.T) {
	t.Parallel()

	provider := &fakeLLM{fn: func(_ int, _ string) (*llm.Completion, error) {
		return &llm.Completion{Text: "Fasting is prescribed <RAG id=1>. Ramadan begins tomorrow <Internet id=1>."}, nil
	}}
	syn := testSynthesizer(provider, StrictnessDrop)

	answer, warnings, trace, err := syn.Synthesize(context.Background(), RewrittenQuery{Text: "when does ramadan start"}, groundingResults(), false)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(warnings) != 0 || trace != "" {
		t.Fatalf("expected no warnings or trace, got %v %q", warnings, trace)
	}
	if answer.Text != "Fasting is prescribed [1]. Ramadan begins tomorrow [2]." {
		t.Fatalf("citation tags not rewritten: %q", answer.Text)
	}
	if len(answer.References) != 2 {
		t.Fatalf("expected two references, got %+v", answer.References)
	}
	if answer.References[0].SourceID != "quran-2-183" || answer.References[1].SourceID != "https://example.com/moon" {
		t.Fatalf("references must map to supplied sources: %+v", answer.References)
	}

	prompt := provider.prompt(0)
	if !strings.Contains(prompt, "<Sources>") {
		t.Fatalf("grounded prompt missing sources block: %q", prompt)
	}
	if !strings.Contains(prompt, "<RAG id=1>quran-2-183:") {
		t.Fatalf("corpus source not serialized: %q", prompt)
	}
	if !strings.Contains(prompt, "<Internet id=1>Moon sighting (https://example.com/moon):") {
		t.Fatalf("web source not serialized: %q", prompt)
	}
	if !strings.Contains(prompt, "when does ramadan start") {
		t.Fatalf("question missing from prompt: %q", prompt)
	}
}

func TestSynthesizeUngrounded(t *testing.T) {
	t.Parallel()

	provider := &fakeLLM{fn: func(_ int, _ string) (*llm.Completion, error) {
		return &llm.Completion{Text: "As a general note [1], seek a qualified scholar."}, nil
	}}
	syn := testSynthesizer(provider, StrictnessDrop)

	answer, warnings, _, err := syn.Synthesize(context.Background(), RewrittenQuery{Text: "obscure question"}, nil, false)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.Contains(provider.prompt(0), "No sources are available") {
		t.Fatalf("expected the ungrounded prompt: %q", provider.prompt(0))
	}
	if answer.Text != "As a general note, seek a qualified scholar." {
		t.Fatalf("fabricated marker must be removed: %q", answer.Text)
	}
	if len(answer.References) != 0 {
		t.Fatalf("ungrounded answer must carry no references: %+v", answer.References)
	}
	if len(warnings) != 0 {
		t.Fatalf("drop mode stays silent, got %v", warnings)
	}
}

func TestSynthesizeFlagsUngroundedClaims(t *testing.T) {
	t.Parallel()

	provider := &fakeLLM{fn: func(_ int, _ string) (*llm.Completion, error) {
		return &llm.Completion{Text: "Grounded <RAG id=1> but also invented <RAG id=9>."}, nil
	}}
	syn := testSynthesizer(provider, StrictnessFlag)

	answer, warnings, _, err := syn.Synthesize(context.Background(), RewrittenQuery{Text: "q"}, groundingResults(), false)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if answer.Text != "Grounded [1] but also invented." {
		t.Fatalf("invented citation must still be removed in flag mode: %q", answer.Text)
	}
	if len(warnings) != 1 || warnings[0] != WarnUngroundedClaim {
		t.Fatalf("expected ungrounded claim warning, got %v", warnings)
	}
}

func TestSynthesizeThinking(t *testing.T) {
	t.Parallel()

	provider := &fakeLLM{fn: func(_ int, _ string) (*llm.Completion, error) {
		return &llm.Completion{Text: "The answer <RAG id=1>.", ReasoningTrace: "compared both sources"}, nil
	}}
	syn := testSynthesizer(provider, StrictnessDrop)

	answer, _, trace, err := syn.Synthesize(context.Background(), RewrittenQuery{Text: "q"}, groundingResults(), true)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !provider.opts[0].Thinking {
		t.Fatal("thinking mode not requested from the provider")
	}
	if trace != "compared both sources" {
		t.Fatalf("trace not surfaced: %q", trace)
	}
	if strings.Contains(answer.Text, "compared both sources") {
		t.Fatal("trace must not leak into the answer text")
	}
}

func TestSynthesizeEmptyCompletion(t *testing.T) {
	t.Parallel()

	provider := &fakeLLM{fn: func(_ int, _ string) (*llm.Completion, error) {
		return &llm.Completion{Text: "   "}, nil
	}}
	syn := testSynthesizer(provider, StrictnessDrop)

	_, _, _, err := syn.Synthesize(context.Background(), RewrittenQuery{Text: "q"}, groundingResults(), false)
	if !errors.Is(err, llm.ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}

func TestSynthesizeProviderError(t *testing.T) {
	t.Parallel()

	provider := &fakeLLM{fn: func(_ int, _ string) (*llm.Completion, error) {
		return nil, llm.ErrUnavailable
	}}
	syn := testSynthesizer(provider, StrictnessDrop)

	_, _, _, err := syn.Synthesize(context.Background(), RewrittenQuery{Text: "q"}, nil, false)
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("expected provider error passthrough, got %v", err)
	}
}

func TestSerializeResultsBudget(t *testing.T) {
	t.Parallel()

	results := []ToolResult{
		{Kind: KindRetrieval, Text: "   ", SourceID: "skipped"},
		{Kind: KindRetrieval, Text: "one two three four five", SourceID: "a"},
		{Kind: KindRetrieval, Text: "six seven eight nine ten", SourceID: "b"},
		{Kind: KindRetrieval, Text: "eleven twelve thirteen fourteen fifteen", SourceID: "c"},
	}

	// Each serialized entry costs about 7 estimated tokens; a budget of 16
	// fits two entries and cuts the third.
	block, consumed := serializeResults(results, 16)
	if len(consumed) != 2 {
		t.Fatalf("expected two sources within budget, got %d", len(consumed))
	}
	if consumed[0].SourceID != "a" || consumed[1].SourceID != "b" {
		t.Fatalf("unexpected consumed set: %+v", consumed)
	}
	if !strings.Contains(block, "<RAG id=1>a:") || !strings.Contains(block, "<RAG id=2>b:") {
		t.Fatalf("unexpected block: %q", block)
	}
	if strings.Contains(block, "id=3") {
		t.Fatalf("over-budget source must not be serialized: %q", block)
	}

	// The first source always fits, however small the budget.
	_, consumed = serializeResults(results, 1)
	if len(consumed) != 1 || consumed[0].SourceID != "a" {
		t.Fatalf("expected the first source to survive a tiny budget, got %+v", consumed)
	}
}

func TestSerializeResultsNumbersKindsSeparately(t *testing.T) {
	t.Parallel()

	results := []ToolResult{
		{Kind: KindRetrieval, Text: "first passage", SourceID: "quran-2-183"},
		{Kind: KindWeb, Text: "a headline", SourceID: "https://example.com/a", Title: "News"},
		{Kind: KindRetrieval, Text: "second passage", SourceID: "sunnah-1891"},
	}

	block, consumed := serializeResults(results, 0)
	if len(consumed) != 3 {
		t.Fatalf("expected all sources serialized, got %d", len(consumed))
	}
	for _, want := range []string{
		"<RAG id=1>quran-2-183: first passage</RAG>",
		"<Internet id=1>News (https://example.com/a): a headline</Internet>",
		"<RAG id=2>sunnah-1891: second passage</RAG>",
	} {
		if !strings.Contains(block, want) {
			t.Fatalf("block missing %q: %q", want, block)
		}
	}
}
