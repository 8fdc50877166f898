// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling with rich context for the SDK.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies SDK errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeUnknownAction indicates a call named an action that is not registered.
	CodeUnknownAction ErrorCode = "UNKNOWN_ACTION"

	// CodeInvalidArguments indicates a payload could not be decoded into the
	// action's argument shape.
	CodeInvalidArguments ErrorCode = "INVALID_ARGUMENTS"

	// CodeHandlerError indicates the action's own logic reported a failure.
	CodeHandlerError ErrorCode = "HANDLER_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeInternal indicates an unexpected failure, including recovered panics.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeConfiguration indicates a setup mistake surfaced at startup, such as a
	// duplicate action name or registration after the service started.
	CodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// CodeAPI indicates the platform API answered with a non-success status.
	CodeAPI ErrorCode = "API_ERROR"

	// CodeUnauthorized indicates the API key was rejected.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeTransport indicates the toolkit connection failed.
	CodeTransport ErrorCode = "TRANSPORT_ERROR"

	// CodeContextLost indicates the caller's context ended before completion.
	CodeContextLost ErrorCode = "CONTEXT_LOST"
)

// UnifaiError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type UnifaiError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]any
	Recoverable bool
	StatusCode  int
}

// Error implements the error interface.
func (e *UnifaiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *UnifaiError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a UnifaiError with the same code.
// A target with an empty code matches any UnifaiError.
func (e *UnifaiError) Is(target error) bool {
	t, ok := target.(*UnifaiError)
	if !ok {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *UnifaiError) MarshalJSON() ([]byte, error) {
	out := struct {
		Code        string         `json:"code"`
		Message     string         `json:"message"`
		Err         string         `json:"error,omitempty"`
		Context     map[string]any `json:"context,omitempty"`
		Recoverable bool           `json:"recoverable"`
		StatusCode  int            `json:"status_code,omitempty"`
	}{
		Code:        string(e.Code),
		Message:     e.Message,
		Context:     e.Context,
		Recoverable: e.Recoverable,
		StatusCode:  e.StatusCode,
	}
	if e.Err != nil {
		out.Err = e.Err.Error()
	}
	return json.Marshal(out)
}

// New creates a new UnifaiError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *UnifaiError {
	return &UnifaiError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]any),
		StatusCode: codeToStatusCode(code),
	}
}

// Newf creates a UnifaiError without a cause and a formatted message.
func Newf(code ErrorCode, format string, args ...any) *UnifaiError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *UnifaiError) WithContext(key string, value any) *UnifaiError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *UnifaiError) WithRecoverable(recoverable bool) *UnifaiError {
	e.Recoverable = recoverable
	return e
}

// WithStatusCode overrides the status code derived from the error code.
func (e *UnifaiError) WithStatusCode(status int) *UnifaiError {
	e.StatusCode = status
	return e
}

// AsUnifaiError attempts to convert an error to a UnifaiError.
// Returns the error as UnifaiError if one is found in the chain, or wraps it
// as an internal error otherwise.
func AsUnifaiError(err error) *UnifaiError {
	if err == nil {
		return nil
	}
	var ue *UnifaiError
	if stderrors.As(err, &ue) {
		return ue
	}
	return New(CodeInternal, "wrapped error", err)
}

// CodeOf returns the code of the first UnifaiError in err's chain, or an
// empty code when there is none.
func CodeOf(err error) ErrorCode {
	var ue *UnifaiError
	if stderrors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

// HasCode reports whether err's chain contains a UnifaiError with code.
func HasCode(err error, code ErrorCode) bool {
	return stderrors.Is(err, &UnifaiError{Code: code})
}

// IsRecoverable reports whether err is marked recoverable.
func IsRecoverable(err error) bool {
	var ue *UnifaiError
	if stderrors.As(err, &ue) {
		return ue.Recoverable
	}
	return false
}

func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeUnknownAction:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInvalidArguments, CodeConfiguration:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusRequestTimeout
	case CodeAPI, CodeTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
