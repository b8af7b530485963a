// Package sqlerr defines the error taxonomy shared by the statement builder,
// the introspector and the client.
package sqlerr

import (
	"errors"
	"fmt"
)

// UsageError reports invalid or missing caller input. It is always raised
// before any statement text is built.
type UsageError struct {
	Param  string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

// Usage returns a *UsageError for the named parameter.
func Usage(param, format string, args ...any) error {
	return &UsageError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

// IsUsage reports whether err is, or wraps, a *UsageError.
func IsUsage(err error) bool {
	var e *UsageError
	return errors.As(err, &e)
}

// SizeLimitError is returned when statement text is longer than the
// configured ceiling.
type SizeLimitError struct {
	Limit  int
	Length int
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("statement of %d bytes exceeds maximum statement length of %d bytes", e.Length, e.Limit)
}

// StatementError attaches the failing statement text to an error surfaced
// by the driver. The driver error stays reachable through Unwrap.
type StatementError struct {
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%v (statement: %s)", e.Err, e.Statement)
}

func (e *StatementError) Unwrap() error { return e.Err }

// StatementOf returns the statement text attached to err, if any.
func StatementOf(err error) (string, bool) {
	var e *StatementError
	if errors.As(err, &e) {
		return e.Statement, true
	}
	return "", false
}
