package genai

import (
	"errors"
)

// Error types for classifying generation-backend errors. The retry loop
// treats each class differently: rate limits and transient failures are
// retried with their own backoff curves, fatal errors abort immediately.

// RateLimitError represents a backend rejection for exceeding its rate limits.
type RateLimitError struct {
	err error
}

func (e *RateLimitError) Error() string {
	return e.err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.err
}

// NewRateLimitError wraps an error as a rate-limit rejection.
func NewRateLimitError(err error) error {
	return &RateLimitError{err: err}
}

// TransientError represents a temporary error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent error that should not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsRateLimit returns true if the error is a rate-limit rejection.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
