package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies pipeline failures for propagation and retry policy.
type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "not_found"
	ErrCodeConflict         ErrorCode = "conflict"
	ErrCodeToolNotAvailable ErrorCode = "tool_not_available"
	ErrCodeTimeout          ErrorCode = "timeout"
	ErrCodeTransient        ErrorCode = "transient_provider_error"
	ErrCodeValidation       ErrorCode = "validation_error"
	ErrCodeInvalidMedia     ErrorCode = "invalid_media_reference"
	ErrCodeInternal         ErrorCode = "internal"
)

// PipelineError is the typed error carried through the pipeline. Transport
// maps Code to an HTTP status; the executor uses it to decide retries.
type PipelineError struct {
	Code     ErrorCode
	ToolName string
	Message  string
	Err      error
}

func (e *PipelineError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.ToolName != "" {
		msg = fmt.Sprintf("%s: %s", e.ToolName, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewError creates a PipelineError.
func NewError(code ErrorCode, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps err with a code and message.
func WrapError(code ErrorCode, err error, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the error code, defaulting to internal.
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// Retryable reports whether err is a transient provider failure. Validation
// and media-reference errors must never be retried; timeouts are surfaced
// because the remote side effect may still complete.
func Retryable(err error) bool {
	return IsCode(err, ErrCodeTransient)
}
