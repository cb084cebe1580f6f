package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested report does not exist.
	ErrNotFound = errors.New("not found")
	// ErrChatUnavailable is returned by chat operations when no LLM backend is configured.
	ErrChatUnavailable = errors.New("chat is unavailable: no LLM API key configured")
	// ErrUpstream wraps failures of the LLM backend.
	ErrUpstream = errors.New("llm request failed")
)

// ValidationError is a user-facing rejection of input. Its message is safe to
// return to clients verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a *ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
