// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package openai adapts the agent tools to openai-go chat completions.
package openai

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go"

	"github.com/unifai-network/unifai-sdk-go/pkg/llm"
)

// Executor is what the adapters need from a toolset. *tools.Toolset
// implements it.
type Executor interface {
	Definitions() []llm.Tool
	Execute(ctx context.Context, call llm.ToolCall) (string, error)
}

// ToolParams converts the toolset's definitions for a chat completion request.
func ToolParams(ts Executor) []openai.ChatCompletionToolParam {
	defs := ts.Definitions()
	params := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		params = append(params, convertTool(def))
	}
	return params
}

func convertTool(tool llm.Tool) openai.ChatCompletionToolParam {
	var params openai.FunctionParameters
	if raw, err := json.Marshal(tool.Function.Parameters); err == nil {
		_ = json.Unmarshal(raw, &params)
	}
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: openai.FunctionDefinitionParam{
			Name:        tool.Function.Name,
			Description: openai.String(tool.Function.Description),
			Parameters:  params,
		},
	}
}

// ToolCalls converts the tool calls of a completion message.
func ToolCalls(msg openai.ChatCompletionMessage) []llm.ToolCall {
	calls := make([]llm.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		calls = append(calls, llm.ToolCall{
			ID:   tc.ID,
			Type: llm.ToolTypeFunction,
			Function: llm.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return calls
}

// ToolMessages runs every tool call in msg and returns one tool message per
// call, in order. A failing call is reported to the model as
// {"error": "..."} so the conversation can continue.
func ToolMessages(ctx context.Context, ts Executor, msg openai.ChatCompletionMessage) []openai.ChatCompletionMessageParamUnion {
	calls := ToolCalls(msg)
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(calls))
	for _, call := range calls {
		content, err := ts.Execute(ctx, call)
		if err != nil {
			content = errorContent(err)
		}
		out = append(out, openai.ToolMessage(content, call.ID))
	}
	return out
}

func errorContent(err error) string {
	data, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return err.Error()
	}
	return string(data)
}
