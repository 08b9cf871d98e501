package config

import (
	"testing"
	"time"
)

func TestGetEnv_Default(t *testing.T) {
	if got := GetEnv("RAWI_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestGetEnv_Set(t *testing.T) {
	t.Setenv("RAWI_TEST_SET", "value")
	if got := GetEnv("RAWI_TEST_SET", "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("RAWI_TEST_INT", "42")
	if got := GetEnvInt("RAWI_TEST_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("RAWI_TEST_INT", "not-a-number")
	if got := GetEnvInt("RAWI_TEST_INT", 7); got != 7 {
		t.Fatalf("expected default on parse failure, got %d", got)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("RAWI_TEST_DUR", "90s")
	if got := GetEnvDuration("RAWI_TEST_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
	t.Setenv("RAWI_TEST_DUR", "45")
	if got := GetEnvDuration("RAWI_TEST_DUR", time.Second); got != 45*time.Second {
		t.Fatalf("expected bare seconds, got %v", got)
	}
	t.Setenv("RAWI_TEST_DUR", "-3s")
	if got := GetEnvDuration("RAWI_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("expected default for non-positive duration, got %v", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("RAWI_TEST_LIST", "quran, sunnah ,tafsir,,")
	got := GetEnvList("RAWI_TEST_LIST", []string{"fallback"})
	if len(got) != 3 || got[0] != "quran" || got[1] != "sunnah" || got[2] != "tafsir" {
		t.Fatalf("unexpected list: %v", got)
	}
	t.Setenv("RAWI_TEST_LIST", " , ")
	got = GetEnvList("RAWI_TEST_LIST", []string{"fallback"})
	if len(got) != 1 || got[0] != "fallback" {
		t.Fatalf("expected fallback list, got %v", got)
	}
}
