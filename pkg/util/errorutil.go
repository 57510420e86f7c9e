package util

import (
	"errors"
	"fmt"
	"net"
)

// Error kind codes used across remote-call boundaries.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeTransient      = "TRANSIENT"
	CodeMutationFailed = "MUTATION_FAILED"
	CodeConfig         = "CONFIG"
	CodeInternal       = "INTERNAL_ERROR"
)

// RemoteError standardizes errors from the ticketing and catalog services.
type RemoteError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError constructs a RemoteError.
func NewRemoteError(code, message string, status int) *RemoteError {
	return &RemoteError{Code: code, Message: message, Status: status}
}

// NewNotFound marks an expected zero-result outcome from a remote lookup.
func NewNotFound(message string) error {
	return &RemoteError{Code: CodeNotFound, Message: message}
}

// NewTransient wraps a recoverable failure (timeout, connection error,
// unexpected response shape). The dispatch loop retries these.
func NewTransient(message string, err error) error {
	return &RemoteError{Code: CodeTransient, Message: message, Err: err}
}

// NewMutationFailed marks an application-level refusal from the ticketing
// system (comment/edit/merge returned a non-ok status line). Not retried
// within a sweep; the ticket stays new and is re-evaluated next run.
func NewMutationFailed(message string) error {
	return &RemoteError{Code: CodeMutationFailed, Message: message}
}

// NewConfigError marks a configuration gap detected at startup.
func NewConfigError(message string) error {
	return &RemoteError{Code: CodeConfig, Message: message}
}

// IsNotFound reports whether err is an expected not-found outcome.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsTransient reports whether err should be retried with backoff. Raw
// network errors count as transient even when not wrapped.
func IsTransient(err error) bool {
	if hasCode(err, CodeTransient) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsMutationFailed reports whether a ticket mutation was refused.
func IsMutationFailed(err error) bool {
	return hasCode(err, CodeMutationFailed)
}

func hasCode(err error, code string) bool {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Code == code
	}
	return false
}
