package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable machine-readable classification carried by
// every engine error. Kinds, not Go types, are the contract with callers.
type ErrorKind string

const (
	KindConfig           ErrorKind = "config"
	KindContextOverflow  ErrorKind = "context_overflow"
	KindSchemaViolation  ErrorKind = "schema_violation"
	KindTransientBackend ErrorKind = "transient_backend"
	KindFatalBackend     ErrorKind = "fatal_backend"
	KindResource         ErrorKind = "resource"
	KindCancelled        ErrorKind = "cancelled"
)

// EngineError wraps an underlying error with a stable kind.
type EngineError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *EngineError) Unwrap() error { return e.Err }

// NewEngineError builds a kinded error wrapping err (err may be nil).
func NewEngineError(kind ErrorKind, msg string, err error) *EngineError {
	return &EngineError{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or "" for unclassified errors.
func KindOf(err error) ErrorKind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	var co *ContextOverflowError
	if errors.As(err, &co) {
		return KindContextOverflow
	}
	var cfg *ConfigError
	if errors.As(err, &cfg) {
		return KindConfig
	}
	var mnl *ModelNotLoadedError
	if errors.As(err, &mnl) {
		return KindFatalBackend
	}
	var open *CircuitOpenError
	if errors.As(err, &open) {
		return KindFatalBackend
	}
	var sv *SchemaViolationError
	if errors.As(err, &sv) {
		return KindSchemaViolation
	}
	return ""
}

// IsRetryable reports whether err is worth retrying at the client level.
// Context overflow, schema violations, fatal backend errors, config
// errors and cancellation never retry.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransientBackend, KindResource:
		return true
	default:
		return false
	}
}

// ConfigError reports invalid configuration at startup. Fatal.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// ContextOverflowError reports that the prompt plus requested completion
// exceeds the model context. Non-retryable; surfaces to the caller with
// the excess so a remediation can be suggested.
type ContextOverflowError struct {
	EstimatedTokens int
	MaxTokens       int
	Excess          int
}

func (e *ContextOverflowError) Error() string {
	return fmt.Sprintf("context overflow: estimated %d tokens exceeds budget %d by %d (reduce prompt by ~%d tokens)",
		e.EstimatedTokens, e.MaxTokens, e.Excess, e.Excess)
}

// SchemaViolationError reports a single entity or relationship that
// failed validation. It is recovered locally: the item is dropped and
// counted, never failing the batch.
type SchemaViolationError struct {
	Item   string // "entity" or "relationship"
	Reason string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation (%s): %s", e.Item, e.Reason)
}

// ModelNotLoadedError reports that the backend connection could not
// reach READY.
type ModelNotLoadedError struct {
	Service string
	Err     error
}

func (e *ModelNotLoadedError) Error() string {
	return fmt.Sprintf("model not loaded on %s service: %v", e.Service, e.Err)
}

func (e *ModelNotLoadedError) Unwrap() error { return e.Err }

// CircuitOpenError reports that the circuit breaker is rejecting calls.
type CircuitOpenError struct {
	Service string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s service", e.Service)
}
