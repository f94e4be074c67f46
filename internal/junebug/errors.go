// ABOUTME: Error types for the Junebug backend
// ABOUTME: UnaddressableError for messages with no destination, SendError for gateway failures

package junebug

import (
	"errors"
	"fmt"
)

// Reasons a message has no destination.
var (
	ErrNoDestination      = errors.New("message has neither urn nor contact")
	ErrUnsupportedURN     = errors.New("urn scheme cannot be sent over sms")
	ErrNoContactAddresses = errors.New("contact has no addresses")
)

// ErrMalformedReply means the gateway accepted a message but its reply did
// not carry a message id.
var ErrMalformedReply = errors.New("gateway reply has no message id")

// UnaddressableError reports a message that cannot be routed to any address.
type UnaddressableError struct {
	URN     string
	Contact string
	Err     error
}

func (e *UnaddressableError) Error() string {
	switch {
	case e.URN != "":
		return fmt.Sprintf("unaddressable message (urn %q): %v", e.URN, e.Err)
	case e.Contact != "":
		return fmt.Sprintf("unaddressable message (contact %s): %v", e.Contact, e.Err)
	default:
		return fmt.Sprintf("unaddressable message: %v", e.Err)
	}
}

func (e *UnaddressableError) Unwrap() error {
	return e.Err
}

// SendError reports a failed gateway submission. StatusCode is zero when no
// response was received.
type SendError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SendError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("junebug send failed: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("junebug send failed (%d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("junebug returned status %d: %s", e.StatusCode, e.Body)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// BatchError reports where a batch stopped. Messages before Index were
// submitted; Index and everything after it were not.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("message %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
