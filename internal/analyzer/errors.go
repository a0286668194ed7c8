package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrInvalidURL marks syntactically malformed input. Never retried.
var ErrInvalidURL = errors.New("invalid url")

// ErrSessionClosed marks an operation attempted after Session.Close.
var ErrSessionClosed = errors.New("session closed")

// StatusError reports a non-2xx response, preserving the status code.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retryable reports whether the status class warrants another attempt.
// Server errors may be transient; client errors cannot succeed on retry.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500
}

// ExhaustedError reports a consumed retry budget. It wraps the last
// underlying failure and records the total attempt count.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("fetch exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Retryable classifies a fetch attempt failure. Timeouts and
// transport-level failures (DNS, refused, reset) are retryable; malformed
// input, client-status responses and caller cancellation are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidURL) || errors.Is(err, ErrSessionClosed) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// Remaining failures come from the transport (connect, reset, EOF).
	return true
}
