// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// connectInProcess returns a client talking to srv without a transport.
func connectInProcess(t *testing.T, srv *mcpserver.MCPServer, opts ...ClientOption) *Client {
	t.Helper()
	inproc, err := client.NewInProcessClient(srv)
	if err != nil {
		t.Fatalf("in-process client: %v", err)
	}
	if err := inproc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	c, err := initialize(context.Background(), inproc, opts)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// upstreamServer is an MCP server with a few tools to bridge.
func upstreamServer() *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer("upstream", "1.0.0")
	srv.AddTool(mcpgo.NewTool("ping", mcpgo.WithDescription("Reply with pong")),
		func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return mcpgo.NewToolResultText("pong"), nil
		})
	srv.AddTool(mcpgo.NewTool("add",
		mcpgo.WithDescription("Add two numbers"),
		mcpgo.WithNumber("a", mcpgo.Required()),
		mcpgo.WithNumber("b", mcpgo.Required()),
	), func(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		args := req.GetArguments()
		a, _ := args["a"].(float64)
		b, _ := args["b"].(float64)
		return &mcpgo.CallToolResult{
			Content:           []mcpgo.Content{mcpgo.NewTextContent("sum")},
			StructuredContent: map[string]any{"sum": a + b},
		}, nil
	})
	srv.AddTool(mcpgo.NewTool("fail", mcpgo.WithDescription("Always fails")),
		func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return mcpgo.NewToolResultError("upstream is down"), nil
		})
	return srv
}

func callText(t *testing.T, c *Client, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := c.CallTool(context.Background(), name, args)
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	return extractTextContent(res.Content), res.IsError
}
