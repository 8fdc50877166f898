// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
)

// CLIError wraps UnifaiError with CLI-specific formatting and hints.
type CLIError struct {
	*errors.UnifaiError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(ue *errors.UnifaiError, hint string) *CLIError {
	return &CLIError{
		UnifaiError: ue,
		Hint:        hint,
	}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.UnifaiError == nil {
		return "unknown error"
	}

	msg := e.UnifaiError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the underlying UnifaiError.
func (e *CLIError) Unwrap() error {
	return e.UnifaiError
}

// PrintError prints the error to stderr.
func (e *CLIError) PrintError(asJSON bool) {
	e.write(os.Stderr, asJSON)
}

func (e *CLIError) write(w io.Writer, asJSON bool) {
	if asJSON {
		payload, _ := json.Marshal(map[string]any{
			"error": map[string]string{
				"code":    string(e.Code),
				"message": e.detail(),
				"hint":    e.Hint,
			},
		})
		fmt.Fprintln(w, string(payload))
		return
	}

	fmt.Fprintf(w, "Error [%s]: %s\n", FormatErrorCode(e.Code), e.detail())
	if e.Hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", e.Hint)
	}
}

func (e *CLIError) detail() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// wrapError attaches a hint matching the error code. Errors that already
// carry a hint are returned unchanged.
func wrapError(err error) *CLIError {
	var cliErr *CLIError
	if stderrors.As(err, &cliErr) {
		return cliErr
	}
	if errors.CodeOf(err) == "" {
		return NewCLIError(errors.New(errors.CodeInternal, err.Error(), nil), "")
	}
	ue := errors.AsUnifaiError(err)
	switch ue.Code {
	case errors.CodeUnauthorized:
		return NewCLIError(ue, "check the API key (agent.api_key / toolkit.api_key or UNIFAI_AGENT_API_KEY / UNIFAI_TOOLKIT_API_KEY)")
	case errors.CodeTimeout:
		return NewCLIError(ue, "try increasing timeout with --timeout flag")
	case errors.CodeAPI, errors.CodeTransport:
		if ue.Recoverable {
			return NewCLIError(ue, "this may be a transient error; try again later")
		}
		return NewCLIError(ue, "check the endpoints section of your configuration")
	case errors.CodeInvalidArguments:
		return NewCLIError(ue, "run 'unifai help' for usage information")
	default:
		return NewCLIError(ue, "")
	}
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	ue := errors.New(errors.CodeInvalidArguments, fmt.Sprintf("invalid argument: %s", reason), nil).
		WithContext("argument", arg)
	return NewCLIError(ue, "run 'unifai help' for usage information")
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	ue := errors.New(errors.CodeConfiguration, "configuration error", err).
		WithContext("config_path", configPath)

	hint := "check your configuration file syntax"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(ue, hint)
}

// NewMissingKeyError reports an unset API key.
func NewMissingKeyError(key, env string) *CLIError {
	ue := errors.New(errors.CodeConfiguration, key+" is not set", nil)
	return NewCLIError(ue, fmt.Sprintf("set %s or pass --set %s=<key>", env, key))
}

// FormatErrorCode returns a user-friendly name for error codes.
func FormatErrorCode(code errors.ErrorCode) string {
	switch code {
	case errors.CodeUnknownAction:
		return "Unknown Action"
	case errors.CodeInvalidArguments:
		return "Invalid Arguments"
	case errors.CodeHandlerError:
		return "Action Failed"
	case errors.CodeTimeout:
		return "Timeout"
	case errors.CodeInternal:
		return "Internal Error"
	case errors.CodeConfiguration:
		return "Configuration Error"
	case errors.CodeAPI:
		return "API Error"
	case errors.CodeUnauthorized:
		return "Unauthorized"
	case errors.CodeTransport:
		return "Connection Error"
	case errors.CodeContextLost:
		return "Cancelled"
	default:
		return string(code)
	}
}
