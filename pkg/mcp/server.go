// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp bridges the SDK and the Model Context Protocol. A Server
// exposes the agent tools or a toolkit's actions to MCP clients, and a Client
// turns the tools of an MCP server into toolkit actions.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/unifai-network/unifai-sdk-go/pkg/core"
	"github.com/unifai-network/unifai-sdk-go/pkg/tools"
	"github.com/unifai-network/unifai-sdk-go/pkg/toolkit"
)

// AgentID is the agent id attached to calls arriving through MCP.
const AgentID toolkit.ID = "mcp"

var actionSchema = json.RawMessage(`{"type":"object","additionalProperties":true}`)

// Server wraps the mcp-go server.
type Server struct {
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP server.
func NewServer(name, version string, opts ...ServerOption) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// RegisterTool exposes a function tool.
func (s *Server) RegisterTool(tool core.DefinedTool) error {
	def := tool.ToolDefinition()
	schema, err := json.Marshal(def.Function.Parameters)
	if err != nil {
		return fmt.Errorf("encode schema for %s: %w", def.Function.Name, err)
	}

	s.mcpServer.AddTool(mcp.NewToolWithRawSchema(def.Function.Name, def.Function.Description, schema),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			out, err := tool.Call(ctx, req.GetArguments())
			if err != nil {
				s.logger.WarnContext(ctx, "mcp tool call failed", "tool", def.Function.Name, "error", err)
				return mcp.NewToolResultError(err.Error()), nil
			}
			text, err := tools.OutputText(out)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(text), nil
		})
	return nil
}

// RegisterToolset exposes search_services and invoke_service.
func (s *Server) RegisterToolset(ts *tools.Toolset) error {
	for _, tool := range ts.Tools() {
		if err := s.RegisterTool(tool); err != nil {
			return err
		}
	}
	return nil
}

// RegisterActions exposes every action of the registry. Calls go through d,
// so they get the same timeout, journal and error handling as platform calls.
func (s *Server) RegisterActions(reg *toolkit.Registry, d *toolkit.Dispatcher) {
	for _, def := range reg.Definitions() {
		name := def.Name
		s.mcpServer.AddTool(mcp.NewToolWithRawSchema(name, actionDescription(def), actionSchema),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				payload, err := json.Marshal(req.GetArguments())
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				res := d.Dispatch(ctx, toolkit.CallRequest{Action: name, AgentID: AgentID, Payload: payload})
				if !res.OK() {
					return mcp.NewToolResultError(res.Error.Error()), nil
				}
				return mcp.NewToolResultText(outputText(res.Output)), nil
			})
	}
}

// ServeStdio serves on stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP serves the streamable HTTP transport on addr.
func (s *Server) ServeHTTP(addr string) error {
	return server.NewStreamableHTTPServer(s.mcpServer).Start(addr)
}

func actionDescription(def toolkit.Definition) string {
	if def.Payload == nil {
		return def.Description
	}
	if text, ok := def.Payload.(string); ok {
		return def.Description + "\n\nPayload: " + text
	}
	payload, err := json.Marshal(def.Payload)
	if err != nil {
		return def.Description
	}
	return def.Description + "\n\nPayload: " + string(payload)
}

// outputText unwraps JSON strings so text outputs reach the client as is.
func outputText(output json.RawMessage) string {
	var s string
	if err := json.Unmarshal(output, &s); err == nil {
		return s
	}
	return string(output)
}
