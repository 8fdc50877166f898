// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"encoding/json"
	"testing"
)

func TestNewFunctionToolJSON(t *testing.T) {
	tool := NewFunctionTool("search_services", "Search", map[string]any{"type": "object"})
	data, err := json.Marshal(tool)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"function","function":{"name":"search_services","description":"Search","parameters":{"type":"object"}}}`
	if string(data) != want {
		t.Fatalf("unexpected json:\n got %s\nwant %s", data, want)
	}
}

func TestFunctionCallDecode(t *testing.T) {
	var args struct {
		Query string `json:"query"`
	}
	call := FunctionCall{Name: "search_services", Arguments: `{"query":"weather"}`}
	if err := call.Decode(&args); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if args.Query != "weather" {
		t.Fatalf("unexpected query %q", args.Query)
	}

	var empty map[string]any
	if err := (FunctionCall{Name: "x"}).Decode(&empty); err != nil {
		t.Fatalf("expected empty arguments to decode: %v", err)
	}
	if err := (FunctionCall{Name: "x", Arguments: "{"}).Decode(&empty); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestToolMessage(t *testing.T) {
	msg := ToolMessage("call-1", "ok")
	if msg.Role != RoleTool || msg.ToolCallID != "call-1" || msg.Content != "ok" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}
