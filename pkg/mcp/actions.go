// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
	"github.com/unifai-network/unifai-sdk-go/pkg/toolkit"
)

// ToolCaller abstracts MCP tool execution for adapters.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// ToolAction exposes one tool of an MCP server as a toolkit action.
type ToolAction struct {
	tool   mcp.Tool
	name   string
	caller ToolCaller
}

// NewToolAction builds a toolkit action backed by an MCP tool. A non-empty
// prefix is prepended to the action name.
func NewToolAction(tool mcp.Tool, caller ToolCaller, prefix string) (*ToolAction, error) {
	if tool.Name == "" {
		return nil, errors.New(errors.CodeConfiguration, "mcp tool name is required", nil)
	}
	if caller == nil {
		return nil, errors.New(errors.CodeConfiguration, "tool caller is required", nil)
	}
	return &ToolAction{tool: tool, name: prefix + tool.Name, caller: caller}, nil
}

// ActionsFromClient lists the tools of an MCP server and adapts each one.
func ActionsFromClient(ctx context.Context, c *Client, prefix string) ([]toolkit.Action, error) {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	actions := make([]toolkit.Action, 0, len(tools))
	for _, tool := range tools {
		action, err := NewToolAction(tool, c, prefix)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// Name returns the action name.
func (a *ToolAction) Name() string {
	return a.name
}

// Definition describes the action with the tool's input schema as payload.
func (a *ToolAction) Definition() toolkit.Definition {
	description := strings.TrimSpace(a.tool.Description)
	if description == "" {
		description = fmt.Sprintf("MCP tool %s", a.tool.Name)
	}
	return toolkit.Definition{
		Name:        a.name,
		Description: description,
		Payload:     inputSchema(a.tool),
	}
}

// Invoke calls the MCP tool with the call payload as arguments.
func (a *ToolAction) Invoke(ctx context.Context, _ *toolkit.Context, payload json.RawMessage) (*toolkit.Result, error) {
	var args map[string]any
	if err := toolkit.DecodeArguments(payload, &args); err != nil {
		return nil, errors.New(errors.CodeInvalidArguments, err.Error(), err)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := validateRequiredArgs(a.tool, args); err != nil {
		return nil, err
	}

	result, err := a.caller.CallTool(ctx, a.tool.Name, args)
	if err != nil {
		return nil, errors.New(errors.CodeHandlerError, fmt.Sprintf("mcp tool %s failed: %v", a.tool.Name, err), err)
	}
	output, err := toolResultToOutput(result)
	if err != nil {
		return nil, err
	}
	return &toolkit.Result{Output: output}, nil
}

func inputSchema(tool mcp.Tool) any {
	if tool.RawInputSchema != nil {
		return tool.RawInputSchema
	}
	return tool.InputSchema
}

func validateRequiredArgs(tool mcp.Tool, args map[string]any) error {
	schema := tool.InputSchema
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return errors.Newf(errors.CodeInvalidArguments, "missing required field %q", key)
		}
	}
	return nil
}

func toolResultToOutput(result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, errors.New(errors.CodeHandlerError, "mcp tool result is nil", nil)
	}
	if result.IsError {
		msg := extractTextContent(result.Content)
		if msg == "" {
			msg = "mcp tool returned an error"
		}
		return nil, errors.New(errors.CodeHandlerError, msg, nil)
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}
	return extractTextContent(result.Content), nil
}

func extractTextContent(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ toolkit.Action = (*ToolAction)(nil)
