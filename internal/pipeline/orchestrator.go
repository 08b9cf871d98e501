package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"rawi/pkg/llm"
	"rawi/pkg/logging"
	"rawi/pkg/retrieval"
	"rawi/pkg/search"
)

const defaultRequestTimeout = 120 * time.Second

// StageObserver is notified as a request moves through the pipeline states.
// It exists for callers that surface progress while a request runs; the HTTP
// and MCP surfaces leave it unset. Calls happen inline, so implementations
// must return quickly.
type StageObserver interface {
	OnStage(state State)
}

// Config wires the orchestrator. All tuning is passed here at construction
// time; nothing is read from the environment afterwards.
type Config struct {
	LLM       llm.Provider
	Retrieval retrieval.Provider
	// WebSearch is optional. When nil the pipeline runs without web
	// search and web decisions yield no hits.
	WebSearch         search.Provider
	SearchLimit       int
	SearchDepth       string
	RequestTimeout    time.Duration
	PromptTokenBudget int
	Strictness        Strictness
	Observer          StageObserver
	Metrics           *Metrics
	Logger            logging.Logger
}

// Orchestrator drives one request through rewrite, tool selection, and
// synthesis under a single deadline. It holds no per-request state and is
// safe for concurrent use.
type Orchestrator struct {
	rewriter    *QueryRewriter
	selector    *ToolSelector
	synthesizer *Synthesizer
	timeout     time.Duration
	observer    StageObserver
	metrics     *Metrics
	logger      logging.Logger
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.LLM == nil {
		return nil, errors.New("pipeline: generation provider is required")
	}
	if cfg.Retrieval == nil {
		return nil, errors.New("pipeline: retrieval provider is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLoggerWithService("pipeline")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Orchestrator{
		rewriter: NewQueryRewriter(cfg.LLM, logger),
		selector: NewToolSelector(ToolSelectorConfig{
			LLM:         cfg.LLM,
			Retrieval:   cfg.Retrieval,
			Web:         cfg.WebSearch,
			SearchLimit: cfg.SearchLimit,
			SearchDepth: cfg.SearchDepth,
			Metrics:     cfg.Metrics,
			Logger:      logger,
		}),
		synthesizer: NewSynthesizer(SynthesizerConfig{
			LLM:               cfg.LLM,
			PromptTokenBudget: cfg.PromptTokenBudget,
			Strictness:        cfg.Strictness,
			Metrics:           cfg.Metrics,
			Logger:            logger,
		}),
		timeout:  timeout,
		observer: cfg.Observer,
		metrics:  cfg.Metrics,
		logger:   logger,
	}, nil
}

// Process runs one query through the pipeline. It returns either a complete
// Response or a *PipelineError, never both and never a partial answer.
func (o *Orchestrator) Process(ctx context.Context, query Query) (*Response, error) {
	start := time.Now()
	o.observe(StateReceived)

	query.Text = strings.TrimSpace(query.Text)
	if query.Text == "" {
		o.metrics.recordRequest("invalid")
		o.notifyFailed()
		return nil, &PipelineError{
			Stage:   StateReceived,
			Code:    CodeInvalidInput,
			Message: "query text must not be empty",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	warnings := make([]Warning, 0, 3)

	o.observe(StateRewriting)
	stageStart := time.Now()
	rq, degraded := o.rewriter.Rewrite(ctx, query)
	o.metrics.observeStage(StateRewriting, time.Since(stageStart))
	if degraded {
		warnings = append(warnings, WarnDegradedRewrite)
	}
	if err := ctx.Err(); err != nil {
		return o.fail(ctx, StateRewriting, err)
	}

	o.observe(StateSelectingTools)
	stageStart = time.Now()
	decision, results, toolsUnavailable := o.selector.Select(ctx, rq)
	o.metrics.observeStage(StateSelectingTools, time.Since(stageStart))
	if toolsUnavailable {
		warnings = append(warnings, WarnToolsUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return o.fail(ctx, StateSelectingTools, err)
	}

	o.observe(StateSynthesizing)
	stageStart = time.Now()
	answer, synthWarnings, trace, err := o.synthesizer.Synthesize(ctx, rq, results, query.Thinking)
	o.metrics.observeStage(StateSynthesizing, time.Since(stageStart))
	if err != nil {
		return o.fail(ctx, StateSynthesizing, err)
	}
	warnings = append(warnings, synthWarnings...)

	elapsed := time.Since(start)
	o.observe(StateDone)
	o.metrics.recordRequest("answered")
	o.logger.WithFields(logging.Fields{
		"decision":   decision,
		"references": len(answer.References),
		"warnings":   len(warnings),
		"elapsed_ms": elapsed.Milliseconds(),
	}).Info("Request answered")

	return &Response{
		Answer:         answer,
		RewrittenQuery: rq.Text,
		Decision:       decision,
		Results:        results,
		Warnings:       warnings,
		ReasoningTrace: trace,
		ElapsedMS:      elapsed.Milliseconds(),
	}, nil
}

func (o *Orchestrator) fail(ctx context.Context, stage State, err error) (*Response, error) {
	perr := classifyFailure(ctx, stage, err)
	o.metrics.recordRequest("failed")
	o.notifyFailed()
	o.logger.WithError(err).WithFields(logging.Fields{
		"state": StateFailed,
		"stage": stage,
		"code":  perr.Code,
	}).Error("Request failed")
	return nil, perr
}

func (o *Orchestrator) observe(state State) {
	o.logger.WithField("state", state).Debug("Pipeline state change")
	if o.observer != nil {
		o.observer.OnStage(state)
	}
}

func (o *Orchestrator) notifyFailed() {
	if o.observer != nil {
		o.observer.OnStage(StateFailed)
	}
}
