// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("network timeout")
	ue := New(CodeTimeout, "action timed out", cause)

	if ue.Code != CodeTimeout {
		t.Errorf("expected CodeTimeout, got %v", ue.Code)
	}
	if ue.Message != "action timed out" {
		t.Errorf("expected message 'action timed out', got %q", ue.Message)
	}
	if ue.Err != cause {
		t.Errorf("expected cause to be preserved")
	}
	if !errors.Is(ue, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
	if ue.StatusCode != 408 {
		t.Errorf("expected status 408, got %d", ue.StatusCode)
	}
}

func TestWithContext(t *testing.T) {
	ue := New(CodeHandlerError, "action failed", nil)
	ue.WithContext("action", "echo").
		WithContext("agent_id", "42")

	if ue.Context["action"] != "echo" {
		t.Errorf("expected context action to be 'echo'")
	}
	if ue.Context["agent_id"] != "42" {
		t.Errorf("expected context agent_id to be set")
	}
}

func TestWithRecoverable(t *testing.T) {
	ue := New(CodeAPI, "bad gateway", nil)
	if ue.Recoverable {
		t.Errorf("expected recoverable to be false by default")
	}
	ue.WithRecoverable(true)
	if !ue.Recoverable {
		t.Errorf("expected recoverable to be true after WithRecoverable")
	}
	if !IsRecoverable(fmt.Errorf("outer: %w", ue)) {
		t.Errorf("expected IsRecoverable to see through wrapping")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		ue       *UnifaiError
		expected string
	}{
		{
			name:     "with cause",
			ue:       New(CodeTimeout, "operation timed out", errors.New("deadline exceeded")),
			expected: "[TIMEOUT] operation timed out: deadline exceeded",
		},
		{
			name:     "without cause",
			ue:       New(CodeUnknownAction, "action \"nope\" is not registered", nil),
			expected: "[UNKNOWN_ACTION] action \"nope\" is not registered",
		},
		{
			name:     "formatted",
			ue:       Newf(CodeConfiguration, "duplicate action %q", "echo"),
			expected: "[CONFIGURATION_ERROR] duplicate action \"echo\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ue.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("register: %w", New(CodeConfiguration, "duplicate", nil))

	if !HasCode(err, CodeConfiguration) {
		t.Fatalf("expected HasCode to match configuration error")
	}
	if HasCode(err, CodeTimeout) {
		t.Fatalf("expected HasCode not to match timeout")
	}
	if CodeOf(err) != CodeConfiguration {
		t.Fatalf("expected CodeOf to return configuration, got %q", CodeOf(err))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("expected empty code for plain error")
	}
}

func TestAsUnifaiError(t *testing.T) {
	if AsUnifaiError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}

	original := New(CodeAPI, "bad status", nil)
	if got := AsUnifaiError(fmt.Errorf("wrap: %w", original)); got != original {
		t.Fatalf("expected wrapped UnifaiError to be returned as-is")
	}

	plain := errors.New("boom")
	wrapped := AsUnifaiError(plain)
	if wrapped.Code != CodeInternal {
		t.Fatalf("expected plain error to be wrapped as internal, got %s", wrapped.Code)
	}
	if !errors.Is(wrapped, plain) {
		t.Fatalf("expected wrapped error to keep its cause")
	}
}

func TestMarshalJSON(t *testing.T) {
	ue := New(CodeAPI, "platform rejected request", errors.New("502")).
		WithContext("path", "/actions/call").
		WithRecoverable(true)

	data, err := json.Marshal(ue)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["code"] != "API_ERROR" {
		t.Errorf("unexpected code: %v", decoded["code"])
	}
	if decoded["error"] != "502" {
		t.Errorf("unexpected error field: %v", decoded["error"])
	}
	if decoded["recoverable"] != true {
		t.Errorf("expected recoverable=true")
	}
	ctx, ok := decoded["context"].(map[string]any)
	if !ok || ctx["path"] != "/actions/call" {
		t.Errorf("unexpected context: %v", decoded["context"])
	}
}
