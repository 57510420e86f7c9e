package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifiers(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("no such user")))
	assert.True(t, IsTransient(NewTransient("request failed", errors.New("connection refused"))))
	assert.True(t, IsMutationFailed(NewMutationFailed("409 syntax error")))

	assert.False(t, IsTransient(NewMutationFailed("409 syntax error")))
	assert.False(t, IsMutationFailed(NewTransient("request failed", nil)))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestRawNetworkErrorIsTransient(t *testing.T) {
	assert.True(t, IsTransient(timeoutError{}))
	assert.True(t, IsTransient(fmt.Errorf("fetching ticket: %w", timeoutError{})))
}

func TestClassifiersSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("sweep: %w", NewTransient("request failed", nil))
	assert.True(t, IsTransient(wrapped))
}

func TestErrorMessage(t *testing.T) {
	err := NewTransient("request failed", errors.New("connection refused"))
	assert.Equal(t, "request failed: connection refused", err.Error())
	assert.Equal(t, "no such user", NewNotFound("no such user").Error())
}
