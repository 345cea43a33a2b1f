package main

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %v, want 5", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %v, want 10", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty p50 = %v, want 0", got)
	}
}

func TestRunPhaseCountsOpsAndFailures(t *testing.T) {
	var calls int
	stats := runPhase(100, 1, 1, func(*rand.Rand) error {
		calls++
		if calls%4 == 0 {
			return errors.New("boom")
		}
		return nil
	})
	if stats.ops != 100 || calls != 100 {
		t.Fatalf("expected 100 ops, got %d (calls %d)", stats.ops, calls)
	}
	if stats.failures != 25 {
		t.Fatalf("expected 25 failures, got %d", stats.failures)
	}
}
