// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm holds provider-neutral function-tool types shared by the agent
// tools and the model provider adapters.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolType represents the type of tool.
type ToolType string

const (
	ToolTypeFunction ToolType = "function"
)

// FunctionDef defines a function tool.
type FunctionDef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters"` // JSON Schema
}

// Tool represents a tool available to the model.
type Tool struct {
	Type     ToolType    `json:"type"`
	Function FunctionDef `json:"function"`
}

// NewFunctionTool builds a function tool definition.
func NewFunctionTool(name, description string, parameters any) Tool {
	return Tool{
		Type: ToolTypeFunction,
		Function: FunctionDef{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// FunctionCall represents a call to a function tool.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string containing arguments
}

// Decode unmarshals the call arguments into v. Empty arguments decode as {}.
func (c FunctionCall) Decode(v any) error {
	args := strings.TrimSpace(c.Arguments)
	if args == "" {
		args = "{}"
	}
	if err := json.Unmarshal([]byte(args), v); err != nil {
		return fmt.Errorf("decode arguments for %s: %w", c.Name, err)
	}
	return nil
}

// ToolCall represents a request from the model to call a tool.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     ToolType     `json:"type"`
	Function FunctionCall `json:"function"`
}

// Message is a single unit of communication.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // Used for tool role messages
}

// ToolMessage builds the tool-role reply for a call.
func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}
