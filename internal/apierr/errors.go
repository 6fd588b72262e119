// Package apierr defines the error kinds shared by every service package.
// Callers classify failures with errors.Is against the Err* kinds and read
// upstream detail (status, code, message) through errors.As on *Error.
package apierr

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Use errors.Is(err, apierr.ErrNotFound) to check.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrAuth          = errors.New("authentication failed")
	ErrNotFound      = errors.New("not found")
	ErrUpstream      = errors.New("upstream error")
	ErrLocalIO       = errors.New("local i/o error")
)

// Fixed codes used when the upstream did not supply an HTTP status.
const (
	CodeAuthFailed    = 400
	CodeConfiguration = 400
	CodeUpstream      = 500
	CodeLocalIO       = 500
)

// Error carries an error kind together with whatever the upstream reported.
type Error struct {
	Kind       error
	StatusCode int
	Code       string // upstream error code, e.g. "itemNotFound"
	Message    string
	RequestID  string
	Err        error // underlying cause, may be nil
}

// New builds an Error of the given kind.
func New(kind error, status int, msg string, cause error) *Error {
	return &Error{
		Kind:       kind,
		StatusCode: status,
		Message:    msg,
		Err:        cause,
	}
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(e.Kind.Error())

	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d", e.StatusCode)

		if e.RequestID != "" {
			fmt.Fprintf(&b, ", request-id: %s", e.RequestID)
		}

		b.WriteString(")")
	}

	if e.Code != "" {
		fmt.Fprintf(&b, ": %s", e.Code)
	}

	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}

	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	return b.String()
}

// Unwrap exposes both the kind and the cause so errors.Is matches either.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// StatusCode returns the first HTTP status found in err's chain, or 0.
func StatusCode(err error) int {
	var ae *Error
	for err != nil {
		if !errors.As(err, &ae) {
			return 0
		}

		if ae.StatusCode != 0 {
			return ae.StatusCode
		}

		err = ae.Err
	}

	return 0
}

// Configuration returns a configuration error listing every problem.
func Configuration(problems ...string) *Error {
	return New(ErrConfiguration, 0, strings.Join(problems, ", "), nil)
}
