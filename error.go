package areabook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error provides rich context about pipeline execution failures.
// It wraps the underlying error with the path of names leading to the
// failing step, when the failure occurred, and whether it was due to
// timeout or cancellation.
//
// The underlying error is wrapped, not replaced: errors.Is and errors.As
// against domain sentinels keep working through the chain.
type Error struct {
	Timestamp time.Time
	Err       error
	Path      []Name
	Duration  time.Duration
	Timeout   bool
	Canceled  bool
}

// Error implements the error interface, providing a detailed error message.
func (e *Error) Error() string {
	location := strings.Join(e.Path, " -> ")
	if location == "" {
		location = "unknown"
	}

	if e.Timeout {
		return fmt.Sprintf("%s timed out after %v: %v", location, e.Duration, e.Err)
	}
	if e.Canceled {
		return fmt.Sprintf("%s canceled after %v: %v", location, e.Duration, e.Err)
	}
	return fmt.Sprintf("%s failed after %v: %v", location, e.Duration, e.Err)
}

// Unwrap returns the underlying error, supporting error wrapping patterns.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsTimeout returns true if the error was caused by a timeout.
func (e *Error) IsTimeout() bool {
	return e.Timeout || errors.Is(e.Err, context.DeadlineExceeded)
}

// IsCanceled returns true if the error was caused by cancellation.
func (e *Error) IsCanceled() bool {
	return e.Canceled || errors.Is(e.Err, context.Canceled)
}
