// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
)

type echoArgs struct {
	Content string `json:"content" validate:"required"`
}

func echoAction(calls *atomic.Int32) Action {
	return NewAction(Definition{
		Name:        "echo",
		Description: "Echo the message",
		Payload:     map[string]any{"content": map[string]any{"type": "string", "required": true}},
	}, func(_ context.Context, actx *Context, params Params[echoArgs]) (Output[string], error) {
		if calls != nil {
			calls.Add(1)
		}
		return Output[string]{
			Payload: fmt.Sprintf("You are agent <$%s>, you said \"%s\".", actx.AgentID, params.Payload.Content),
		}, nil
	})
}

func stubAction(name string, fn func(ctx context.Context) (any, error)) Action {
	return NewAction(Definition{Name: name, Description: "stub " + name},
		func(ctx context.Context, _ *Context, _ Params[map[string]any]) (Output[any], error) {
			out, err := fn(ctx)
			return Output[any]{Payload: out}, err
		})
}

func newTestRegistry(t *testing.T, actions ...Action) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, a := range actions {
		if err := reg.Register(a); err != nil {
			t.Fatalf("register %s: %v", a.Name(), err)
		}
	}
	if err := reg.Freeze(); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	return reg
}

func decodeOutput[T any](t *testing.T, result CallResult) T {
	t.Helper()
	var v T
	if result.Error != nil {
		t.Fatalf("expected success, got %s", result.Error)
	}
	if err := json.Unmarshal(result.Output, &v); err != nil {
		t.Fatalf("decode output %s: %v", result.Output, err)
	}
	return v
}
