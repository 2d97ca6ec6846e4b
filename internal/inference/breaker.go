package inference

import (
	"sync"
	"time"

	"lexgraph/internal/logging"
	"lexgraph/internal/types"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// CircuitBreaker trips after a run of consecutive failures and rejects
// calls while open. After the recovery timeout it admits a single probe;
// the probe's outcome closes or re-opens the circuit.
type CircuitBreaker struct {
	service   string
	threshold int
	recovery  time.Duration

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewCircuitBreaker builds a breaker for a service.
func NewCircuitBreaker(service string, threshold int, recovery time.Duration) *CircuitBreaker {
	return &CircuitBreaker{service: service, threshold: threshold, recovery: recovery}
}

// Allow reports whether a call may proceed. Returns CircuitOpenError
// while the circuit is rejecting.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return nil
	case breakerOpen:
		if time.Since(b.openedAt) < b.recovery {
			return &types.CircuitOpenError{Service: b.service}
		}
		b.state = breakerHalfOpen
		b.probing = true
		logging.Inference("circuit for %s half-open, admitting probe", b.service)
		return nil
	default: // half-open
		if b.probing {
			return &types.CircuitOpenError{Service: b.service}
		}
		b.probing = true
		return nil
	}
}

// RecordSuccess resets the failure run and closes a half-open circuit.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerHalfOpen {
		logging.Inference("circuit for %s closed after successful probe", b.service)
	}
	b.state = breakerClosed
	b.failures = 0
	b.probing = false
}

// RecordFailure counts a failure; at the threshold the circuit opens.
// A half-open probe failure re-opens immediately.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = time.Now()
		b.probing = false
		logging.InferenceWarn("circuit for %s re-opened after failed probe", b.service)
		return
	}

	b.failures++
	if b.state == breakerClosed && b.failures >= b.threshold {
		b.state = breakerOpen
		b.openedAt = time.Now()
		logging.InferenceWarn("circuit for %s opened after %d consecutive failures", b.service, b.failures)
	}
}

// State returns the current state name, for stats reporting.
func (b *CircuitBreaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}
