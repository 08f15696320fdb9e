package core

import (
	"errors"
)

var (
	// ErrUnavailable is returned when the model endpoint cannot be reached
	ErrUnavailable = errors.New("llm endpoint unavailable")
	// ErrTimeout is returned when the model does not respond within the call timeout
	ErrTimeout = errors.New("llm call timed out")
	// ErrMalformedResponse is returned when the model output cannot be parsed into a verdict
	ErrMalformedResponse = errors.New("malformed llm response")

	// ErrMailboxAuth is returned when the mailbox rejects the credentials
	ErrMailboxAuth = errors.New("mailbox authentication failed")
	// ErrMailboxTransport is returned when the mailbox cannot be reached or read
	ErrMailboxTransport = errors.New("mailbox transport error")

	// ErrRunInProgress is returned when a batch is started while another is in flight
	ErrRunInProgress = errors.New("a triage run is already in progress")
)

// IsRetryable reports whether an LLM call error is worth retrying
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)
}
