package retry

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError signals that the provider throttled the request (HTTP 429).
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %v", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Provider)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying (bad credentials, unknown symbol).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Outcome classifies a single attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeEmpty
	OutcomeRateLimited
	OutcomeTransient
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransient:
		return "transient"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify maps an operation error to an outcome. A nil error is a success;
// emptiness is decided by the caller.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return OutcomeRateLimited
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return OutcomeFatal
	}
	return OutcomeTransient
}
