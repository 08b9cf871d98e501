// Package clients provides the shared failure-handling layer for the
// outbound HTTP clients (generation, retrieval, web search). Transient
// failures are absorbed here so the pipeline core can treat every port
// call as a definitive success or failure.
package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"rawi/pkg/logging"
)

// DefaultShouldRetry reports whether an HTTP attempt should be retried.
// Retries cover network errors, server errors (5xx) and rate limits (429).
func DefaultShouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// HTTPExecutorConfig configures the retry/breaker behavior of a client.
type HTTPExecutorConfig struct {
	// Retry settings
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// ShouldRetry determines if a response should trigger a retry
	ShouldRetry func(resp *http.Response, err error) bool

	// Breaker names a circuit breaker for log lines. Empty disables the
	// breaker.
	Breaker string

	// Logger for breaker state change notifications
	Logger logging.Logger
}

// DefaultHTTPExecutorConfig returns the defaults shared by the port
// clients: three retries with jittered backoff, no breaker.
func DefaultHTTPExecutorConfig() HTTPExecutorConfig {
	return HTTPExecutorConfig{
		MaxRetries:  3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		ShouldRetry: DefaultShouldRetry,
	}
}

func normalizeHTTPExecutorConfig(cfg HTTPExecutorConfig) HTTPExecutorConfig {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = DefaultShouldRetry
	}
	return cfg
}

// NewHTTPRetryPolicy creates a retry policy for HTTP requests.
//
//nolint:bodyclose // false positive: [*http.Response] is a generic type parameter, not an actual response
func NewHTTPRetryPolicy(cfg HTTPExecutorConfig) retrypolicy.RetryPolicy[*http.Response] {
	cfg = normalizeHTTPExecutorConfig(cfg)
	return retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(resp *http.Response, err error) bool {
			return cfg.ShouldRetry(resp, err)
		}).
		Build()
}

func breakerStateName(state circuitbreaker.State) string {
	switch state {
	case circuitbreaker.ClosedState:
		return "closed"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "unknown"
	}
}

// NewHTTPExecutor creates a failsafe executor combining the retry policy
// with an optional circuit breaker.
//
//nolint:bodyclose // false positive: [*http.Response] is a generic type parameter, not an actual response
func NewHTTPExecutor(cfg HTTPExecutorConfig) failsafe.Executor[*http.Response] {
	retry := NewHTTPRetryPolicy(cfg)

	if cfg.Breaker == "" {
		return failsafe.With(retry)
	}

	builder := circuitbreaker.NewBuilder[*http.Response]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(15 * time.Second).
		WithSuccessThreshold(1).
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode >= http.StatusInternalServerError
		})
	if cfg.Logger != nil {
		name := cfg.Breaker
		logger := cfg.Logger
		builder = builder.OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			logger.WithFields(logging.Fields{
				"circuit_breaker": name,
				"from_state":      breakerStateName(event.OldState),
				"to_state":        breakerStateName(event.NewState),
			}).Warn("circuit breaker state change")
		})
	}

	return failsafe.With(retry, builder.Build())
}

// ExecuteHTTP runs an HTTP request through the executor. The build closure
// constructs a fresh request per attempt so the body can be re-sent. The
// body of a response that triggered a retry is closed here; the final
// response body belongs to the caller.
func ExecuteHTTP(ctx context.Context, executor failsafe.Executor[*http.Response], client *http.Client, shouldRetry func(*http.Response, error) bool, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	if shouldRetry == nil {
		shouldRetry = DefaultShouldRetry
	}
	if executor == nil {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		return client.Do(req)
	}
	return executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if shouldRetry(resp, err) {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
		}
		return resp, err
	})
}
