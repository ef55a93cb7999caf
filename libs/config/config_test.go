package config

import (
	"testing"
	"time"
)

func TestIntFallsBackOnMissingOrBadValue(t *testing.T) {
	if got := Int("CFG_TEST_INT", 10); got != 10 {
		t.Fatalf("expected fallback 10, got %d", got)
	}

	t.Setenv("CFG_TEST_INT", "25")
	if got := Int("CFG_TEST_INT", 10); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}

	t.Setenv("CFG_TEST_INT", "not-a-number")
	if got := Int("CFG_TEST_INT", 10); got != 10 {
		t.Fatalf("expected fallback on parse error, got %d", got)
	}
}

func TestDurationMS(t *testing.T) {
	if got := DurationMS("CFG_TEST_MS", 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}

	t.Setenv("CFG_TEST_MS", "1500")
	if got := DurationMS("CFG_TEST_MS", 5*time.Second); got != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %v", got)
	}

	t.Setenv("CFG_TEST_MS", "-20")
	if got := DurationMS("CFG_TEST_MS", 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected fallback on non-positive value, got %v", got)
	}
}

func TestBool(t *testing.T) {
	if got := Bool("CFG_TEST_BOOL", true); !got {
		t.Fatal("expected fallback true")
	}
	t.Setenv("CFG_TEST_BOOL", "false")
	if got := Bool("CFG_TEST_BOOL", true); got {
		t.Fatal("expected false from env")
	}
}

func TestPort(t *testing.T) {
	port, err := Port("CFG_TEST_PORT", "8080")
	if err != nil || port != "8080" {
		t.Fatalf("expected fallback port, got %q (%v)", port, err)
	}

	t.Setenv("CFG_TEST_PORT", "70000")
	if _, err := Port("CFG_TEST_PORT", "8080"); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}
