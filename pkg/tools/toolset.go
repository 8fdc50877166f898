// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package tools exposes the platform to agents as two function tools:
// search_services to discover actions and invoke_service to call them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/unifai-network/unifai-sdk-go/pkg/api"
	"github.com/unifai-network/unifai-sdk-go/pkg/core"
	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
	"github.com/unifai-network/unifai-sdk-go/pkg/llm"
	"github.com/unifai-network/unifai-sdk-go/pkg/telemetry"
)

// Toolset bundles the agent tools over one platform client.
type Toolset struct {
	client *api.Client
	search *SearchTool
	call   *CallTool
	tools  []core.DefinedTool
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Toolset.
type Option func(*toolsetConfig)

type toolsetConfig struct {
	client      *api.Client
	apiOptions  []api.Option
	searchLimit int
	logger      *slog.Logger
}

// WithClient uses an existing platform client instead of creating one.
func WithClient(c *api.Client) Option {
	return func(cfg *toolsetConfig) {
		cfg.client = c
	}
}

// WithAPIOptions configures the platform client the toolset creates.
func WithAPIOptions(opts ...api.Option) Option {
	return func(cfg *toolsetConfig) {
		cfg.apiOptions = append(cfg.apiOptions, opts...)
	}
}

// WithSearchLimit sets the limit used when a model omits one.
func WithSearchLimit(n int) Option {
	return func(cfg *toolsetConfig) {
		if n > 0 && n <= maxSearchLimit {
			cfg.searchLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *toolsetConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// New builds the agent toolset authenticated with an agent API key.
func New(apiKey string, opts ...Option) *Toolset {
	cfg := toolsetConfig{searchLimit: DefaultSearchLimit, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	client := cfg.client
	if client == nil {
		client = api.New(apiKey, append([]api.Option{api.WithLogger(cfg.logger)}, cfg.apiOptions...)...)
	}

	search := NewSearchTool(client)
	search.defaultLimit = cfg.searchLimit
	call := NewCallTool(client)

	return &Toolset{
		client: client,
		search: search,
		call:   call,
		tools:  []core.DefinedTool{search, call},
		logger: cfg.logger,
		tracer: otel.Tracer("unifai/tools"),
	}
}

// Client returns the platform client.
func (s *Toolset) Client() *api.Client {
	return s.client
}

// Tools returns the tools in a stable order.
func (s *Toolset) Tools() []core.DefinedTool {
	return append([]core.DefinedTool(nil), s.tools...)
}

// Definitions returns the function definitions to hand to a model.
func (s *Toolset) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(s.tools))
	for _, t := range s.tools {
		defs = append(defs, t.ToolDefinition())
	}
	return defs
}

// Lookup finds a tool by name.
func (s *Toolset) Lookup(name string) (core.DefinedTool, bool) {
	for _, t := range s.tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Execute runs a model's tool call and returns the text to send back.
func (s *Toolset) Execute(ctx context.Context, call llm.ToolCall) (string, error) {
	ctx, span := s.tracer.Start(ctx, "tools.execute",
		trace.WithAttributes(telemetry.ToolCallAttributes(call.Function.Name, call.ID)...))
	defer span.End()

	tool, ok := s.Lookup(call.Function.Name)
	if !ok {
		err := errors.Newf(errors.CodeUnknownAction, "unknown tool %q", call.Function.Name)
		span.SetStatus(codes.Error, err.Message)
		return "", err
	}

	start := time.Now()
	out, err := tool.Call(ctx, call.Function.Arguments)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WarnContext(ctx, "tool call failed", "tool", tool.Name(), "call_id", call.ID, "error", err)
		return "", err
	}
	s.logger.DebugContext(ctx, "tool call completed", "tool", tool.Name(), "call_id", call.ID, "duration", time.Since(start))
	return OutputText(out)
}

// OutputText renders a tool output as text for a model.
func OutputText(out any) (string, error) {
	switch v := out.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.RawMessage:
		return string(v), nil
	case []byte:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode tool output: %w", err)
		}
		return string(data), nil
	}
}
