// Package agenterr implements the error taxonomy from the runtime's design:
// a closed set of Kinds, a severity function of Kind, and an AgentError that
// wraps an underlying cause the way the rest of this codebase wraps errors
// with fmt.Errorf("%w", err).
package agenterr

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the closed taxonomy of error categories the orchestrator and its
// sub-engines convert foreign errors into at component boundaries.
type Kind string

const (
	KindProtocol       Kind = "protocol"
	KindTransport      Kind = "transport"
	KindTimeout        Kind = "timeout"
	KindRateLimit      Kind = "rate_limit"
	KindToolExecution  Kind = "tool_execution"
	KindResource       Kind = "resource"
	KindValidation     Kind = "validation"
	KindConfiguration  Kind = "configuration"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindLockTimeout    Kind = "lock_timeout"
	KindSerialization  Kind = "serialization"
	KindInternal       Kind = "internal"
	KindVersionMismatch Kind = "version_mismatch"
)

// Severity is an ordinal ranking of how badly a Kind should be treated by
// callers deciding whether to abort, retry, or merely log.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// SeverityOf returns the severity associated with a Kind. Transport and
// RateLimit default to Medium since both are usually retryable; fatal kinds
// (Configuration, Validation, Internal, VersionMismatch, Authentication,
// Authorization) are High or Critical.
func SeverityOf(k Kind) Severity {
	switch k {
	case KindTimeout, KindRateLimit, KindLockTimeout:
		return SeverityMedium
	case KindTransport, KindToolExecution, KindResource, KindProtocol:
		return SeverityMedium
	case KindValidation:
		return SeverityHigh
	case KindAuthentication, KindAuthorization:
		return SeverityHigh
	case KindConfiguration, KindSerialization, KindVersionMismatch:
		return SeverityCritical
	case KindInternal:
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// Retryable reports whether an error of this kind is retryable in general.
// Timeout and RateLimit are always retryable (outside cancellation);
// Transport is retryable only when explicitly marked recoverable, which is
// carried on the AgentError itself rather than the Kind.
func Retryable(k Kind) bool {
	switch k {
	case KindTimeout, KindRateLimit, KindLockTimeout:
		return true
	default:
		return false
	}
}

// AgentError is the concrete error type every component boundary converts
// foreign errors into. It satisfies error and Unwrap() so it composes with
// errors.Is/errors.As like the rest of this codebase's wrapped errors.
type AgentError struct {
	Kind       Kind
	Message    string
	Cause      error
	Recoverable bool   // meaningful for KindTransport
	RetryAfter time.Duration // meaningful for KindRateLimit, KindLockTimeout
	Context    map[string]string
}

func (e *AgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AgentError) Unwrap() error { return e.Cause }

// Severity returns this error's severity.
func (e *AgentError) Severity() Severity { return SeverityOf(e.Kind) }

// IsRetryable reports whether this specific error instance should be
// retried: a Transport error follows its Recoverable flag, every other kind
// follows the Kind default. RetryAfter is not consulted.
func (e *AgentError) IsRetryable() bool {
	if e.Kind == KindTransport {
		return e.Recoverable
	}
	return Retryable(e.Kind)
}

// New builds an AgentError with no underlying cause.
func New(kind Kind, message string) *AgentError {
	return &AgentError{Kind: kind, Message: message}
}

// Wrap converts a foreign error into an AgentError of the given kind,
// attaching context the way this codebase's fmt.Errorf("op: %w", err)
// wrapping does at every boundary.
func Wrap(kind Kind, op string, err error) *AgentError {
	return &AgentError{Kind: kind, Message: op, Cause: err}
}

// WithContext attaches call-site context (operation, server/tool name,
// retry count) without discarding the original error.
func (e *AgentError) WithContext(key, value string) *AgentError {
	if e.Context == nil {
		e.Context = make(map[string]string, 1)
	}
	e.Context[key] = value
	return e
}

// As is a convenience wrapper over errors.As for the common case of testing
// whether an error chain contains an AgentError.
func As(err error) (*AgentError, bool) {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
