package monitoring

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error {
	return f.err
}

func TestCheckHealthAggregation(t *testing.T) {
	t.Parallel()

	hc := NewHealthChecker("rawi", "test")
	hc.AddCheck("ok", func() CheckResult {
		return CheckResult{Status: StatusHealthy}
	})

	if got := hc.CheckHealth().Status; got != StatusHealthy {
		t.Fatalf("status = %q, want %q", got, StatusHealthy)
	}

	hc.AddCheck("slow", func() CheckResult {
		return CheckResult{Status: StatusDegraded}
	})
	if got := hc.CheckHealth().Status; got != StatusDegraded {
		t.Fatalf("status = %q, want %q", got, StatusDegraded)
	}

	hc.AddCheck("down", func() CheckResult {
		return CheckResult{Status: StatusUnhealthy}
	})
	health := hc.CheckHealth()
	if health.Status != StatusUnhealthy {
		t.Fatalf("status = %q, want %q", health.Status, StatusUnhealthy)
	}
	if len(health.Checks) != 3 {
		t.Fatalf("got %d check results, want 3", len(health.Checks))
	}
}

func TestPingerHealthCheck(t *testing.T) {
	t.Parallel()

	healthy := PingerHealthCheck("llm", &fakePinger{})()
	if healthy.Status != StatusHealthy {
		t.Errorf("healthy pinger status = %q, want %q", healthy.Status, StatusHealthy)
	}

	unhealthy := PingerHealthCheck("llm", &fakePinger{err: errors.New("connection refused")})()
	if unhealthy.Status != StatusUnhealthy {
		t.Errorf("failing pinger status = %q, want %q", unhealthy.Status, StatusUnhealthy)
	}

	missing := PingerHealthCheck("llm", nil)()
	if missing.Status != StatusUnhealthy {
		t.Errorf("nil pinger status = %q, want %q", missing.Status, StatusUnhealthy)
	}
}

func TestConfigurationHealthCheck(t *testing.T) {
	t.Parallel()

	complete := ConfigurationHealthCheck(map[string]string{"LLM_API_KEY": "secret"})()
	if complete.Status != StatusHealthy {
		t.Errorf("complete config status = %q, want %q", complete.Status, StatusHealthy)
	}

	missing := ConfigurationHealthCheck(map[string]string{"LLM_API_KEY": ""})()
	if missing.Status != StatusUnhealthy {
		t.Errorf("missing config status = %q, want %q", missing.Status, StatusUnhealthy)
	}
	if !strings.Contains(missing.Message, "LLM_API_KEY") {
		t.Errorf("message %q does not name the missing key", missing.Message)
	}
}
