package inference

import (
	"errors"
	"testing"
	"time"

	"lexgraph/internal/types"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewCircuitBreaker("instruct", 3, time.Minute)
	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if err := b.Allow(); err != nil {
			t.Fatalf("breaker opened early after %d failures", i+1)
		}
	}
	b.RecordFailure()
	var open *types.CircuitOpenError
	if err := b.Allow(); !errors.As(err, &open) {
		t.Fatalf("expected CircuitOpenError at threshold, got %v", err)
	}
	if b.State() != "open" {
		t.Errorf("state = %s", b.State())
	}
}

func TestBreakerSuccessResetsRun(t *testing.T) {
	b := NewCircuitBreaker("instruct", 3, time.Minute)
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	if err := b.Allow(); err != nil {
		t.Error("non-consecutive failures must not open the circuit")
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewCircuitBreaker("instruct", 1, 10*time.Millisecond)
	b.RecordFailure()
	if err := b.Allow(); err == nil {
		t.Fatal("expected open circuit")
	}

	time.Sleep(15 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe admission after recovery timeout: %v", err)
	}
	// A second caller during the probe is rejected.
	if err := b.Allow(); err == nil {
		t.Error("only one probe may run half-open")
	}

	b.RecordSuccess()
	if b.State() != "closed" {
		t.Errorf("state after successful probe = %s", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Error("closed circuit must admit calls")
	}
}

func TestBreakerReopensOnProbeFailure(t *testing.T) {
	b := NewCircuitBreaker("thinking", 1, 10*time.Millisecond)
	b.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatal("probe should be admitted")
	}
	b.RecordFailure()
	if b.State() != "open" {
		t.Errorf("state after failed probe = %s", b.State())
	}
	if err := b.Allow(); err == nil {
		t.Error("circuit must reject immediately after failed probe")
	}
}
