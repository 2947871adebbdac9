package queryengine

import (
	"fmt"

	"github.com/Vvil1568/lct-hackathone/pkg/retry"
)

// Error wraps a failure reported by the engine for one statement.
type Error struct {
	Op  string // "explain", "stats", "ping"
	SQL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the engine's own error text, unprefixed.
func (e *Error) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Transient reports whether the failure is a timeout or connectivity problem
// rather than the engine rejecting the statement.
func (e *Error) Transient() bool {
	return retry.IsRetryable(e.Err)
}

// NewError wraps err for op on sql. Returns nil when err is nil.
func NewError(op, sql string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, SQL: sql, Err: err}
}
