package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"rawi/pkg/llm"
	"rawi/pkg/logging"
	"rawi/pkg/retrieval"
	"rawi/pkg/search"
)

func testLogger() logging.Logger {
	return logging.NewLoggerWithService("pipeline-test")
}

// fakeLLM scripts the generation provider. The fn callback receives the
// 1-based call number and the last message's content.
type fakeLLM struct {
	mu    sync.Mutex
	calls []string
	opts  []llm.Options
	fn    func(call int, prompt string) (*llm.Completion, error)
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message, opts llm.Options) (*llm.Completion, error) {
	f.mu.Lock()
	prompt := ""
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}
	f.calls = append(f.calls, prompt)
	f.opts = append(f.opts, opts)
	call := len(f.calls)
	f.mu.Unlock()

	if f.fn == nil {
		return &llm.Completion{Text: "ok"}, nil
	}
	return f.fn(call, prompt)
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeLLM) prompt(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.calls) {
		return ""
	}
	return f.calls[i]
}

// promptKind identifies which stage issued a prompt, keyed on wording that
// is unique to each template.
func promptKind(prompt string) string {
	switch {
	case strings.Contains(prompt, "Rewrite the user question"):
		return "rewrite"
	case strings.Contains(prompt, "route questions about Islam"):
		return "select"
	default:
		return "synthesize"
	}
}

type fakeRetrieval struct {
	mu        sync.Mutex
	hits      []retrieval.Hit
	err       error
	delay     time.Duration
	calls     int
	lastQuery string
}

func (f *fakeRetrieval) Search(ctx context.Context, query string) ([]retrieval.Hit, error) {
	f.mu.Lock()
	f.calls++
	f.lastQuery = query
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeRetrieval) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRetrieval) query() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

type fakeSearch struct {
	mu        sync.Mutex
	results   []search.Result
	err       error
	delay     time.Duration
	calls     int
	lastQuery string
	lastOpts  search.SearchOptions
}

func (f *fakeSearch) Search(ctx context.Context, query string, opts search.SearchOptions) ([]search.Result, error) {
	f.mu.Lock()
	f.calls++
	f.lastQuery = query
	f.lastOpts = opts
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeSearch) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSearch) options() search.SearchOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOpts
}
