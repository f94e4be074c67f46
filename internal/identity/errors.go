// ABOUTME: Error types for identity store lookups
// ABOUTME: ResolutionError wraps every failure with the identity and URL involved

package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrIndirectionCycle means a communicate_through chain revisits an identity.
	ErrIndirectionCycle = errors.New("communicate_through cycle")

	// ErrIndirectionDepth means a communicate_through chain is longer than allowed.
	ErrIndirectionDepth = errors.New("communicate_through chain too long")

	// ErrUnexpectedStatus means the identity store answered with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrMalformedResponse means the identity store answered with a body that
	// could not be decoded or lacked a required field.
	ErrMalformedResponse = errors.New("malformed response")
)

// ResolutionError reports a failed identity store interaction.
type ResolutionError struct {
	Identity   string // identity reference being resolved, if any
	URL        string
	StatusCode int    // 0 when no response was received
	Body       string // response body for non-2xx answers
	Err        error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	msg := "address resolution failed"
	if e.Identity != "" {
		msg += fmt.Sprintf(" for identity %s", e.Identity)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// IsResolutionError reports whether err is or wraps a *ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
