package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrToolNotFound        = fmt.Errorf("tool not found")
	ErrMaxRounds           = fmt.Errorf("too many tool rounds")
	ErrConversationTooLong = fmt.Errorf("conversation too long")
	ErrEmptyResponse       = fmt.Errorf("model produced no response")
	ErrConfigLoad          = fmt.Errorf("failed to load configuration")

	// Provider call failures, mapped from HTTP status codes.
	ErrRateLimit     = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid   = fmt.Errorf("authentication failed")
	ErrProviderError = fmt.Errorf("provider error")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Resolve")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRunFatal reports whether err aborts an orchestration run (as opposed
// to a single tool call within a batch).
func IsRunFatal(err error) bool {
	return errors.Is(err, ErrConversationTooLong) ||
		errors.Is(err, ErrMaxRounds) ||
		errors.Is(err, ErrProviderError) ||
		errors.Is(err, ErrAuthInvalid) ||
		errors.Is(err, ErrRateLimit)
}
