package pipeline

import (
	"context"
	"errors"
	"fmt"

	"rawi/pkg/llm"
)

// State names the orchestrator's position in the request lifecycle.
type State string

const (
	StateReceived       State = "received"
	StateRewriting      State = "rewriting"
	StateSelectingTools State = "selecting_tools"
	StateSynthesizing   State = "synthesizing"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// ErrorCode classifies a fatal pipeline failure.
type ErrorCode string

const (
	CodeInvalidInput        ErrorCode = "invalid_input"
	CodeTimeout             ErrorCode = "timeout"
	CodeProviderUnavailable ErrorCode = "provider_unavailable"
)

// PipelineError is the single structured failure a caller can receive. The
// pipeline either returns a complete Response or one of these, never both.
type PipelineError struct {
	Stage   State     `json:"stage"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at %s: %s: %v", e.Code, e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// classifyFailure translates a stage error into the caller-facing taxonomy.
// Deadline and cancellation beat provider classification: once the request
// context is dead every downstream error is a symptom of the timeout.
func classifyFailure(ctx context.Context, stage State, err error) *PipelineError {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &PipelineError{Stage: stage, Code: CodeTimeout, Message: "request deadline exceeded", Err: err}
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &PipelineError{Stage: stage, Code: CodeTimeout, Message: "request cancelled", Err: err}
	case errors.Is(err, llm.ErrRateLimited):
		return &PipelineError{Stage: stage, Code: CodeProviderUnavailable, Message: "generation provider rate limited", Err: err}
	default:
		return &PipelineError{Stage: stage, Code: CodeProviderUnavailable, Message: "generation provider unavailable", Err: err}
	}
}
