// Package orcherr defines the stable error-kind taxonomy shared by every
// component of the orchestration core (spec §7). Components never return
// bare errors across their public boundary; they wrap them in *Error so
// callers (ultimately the ExecutionCoordinator) can branch on Kind.
package orcherr

import (
	"errors"
	"fmt"
)

// Kind is a stable, caller-facing error tag.
type Kind string

const (
	InvalidInput       Kind = "invalid_input"
	NotFound           Kind = "not_found"
	NoAgentsAvailable  Kind = "no_agents_available"
	KnowledgeUnavail   Kind = "knowledge_unavailable"
	ProviderError      Kind = "provider_error"
	RateLimited        Kind = "rate_limited"
	Timeout            Kind = "timeout"
	PoolExhausted      Kind = "pool_exhausted"
	Cancelled          Kind = "cancelled"
	PartialFailure     Kind = "partial_failure"
	Internal           Kind = "internal"
)

// Error is the concrete error type carrying a stable Kind plus the
// underlying cause, so %w-unwrapping and errors.Is/As keep working.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error wrapping cause; if cause is already an *Error, its
// Kind is preserved unless kind is explicitly non-empty.
func Wrap(kind Kind, message string, cause error) *Error {
	if kind == "" {
		var existing *Error
		if errors.As(cause, &existing) {
			kind = existing.Kind
		} else {
			kind = Internal
		}
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, defaulting to Internal for plain errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsRetriable reports whether kind is always retriable per spec §7
// (rate_limited, timeout are retriable; everything else is not).
func IsRetriable(kind Kind) bool {
	return kind == RateLimited || kind == Timeout
}
