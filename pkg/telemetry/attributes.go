// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides slog configuration, OpenTelemetry setup and the
// attribute keys and metrics used by the toolkit runtime and agent tools.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for Unifai telemetry.
// These follow OpenTelemetry naming conventions where applicable.
const (
	// Action attributes
	AttrActionName     = "unifai.action.name"
	AttrActionID       = "unifai.action.id"
	AttrActionAgentID  = "unifai.action.agent_id"
	AttrActionRequest  = "unifai.action.request_id"
	AttrActionKind     = "unifai.action.result_kind"
	AttrActionPayload  = "unifai.action.payload"
	AttrActionOutput   = "unifai.action.output"
	AttrActionSuccess  = "unifai.action.success"
	AttrActionDuration = "unifai.action.duration_ms"

	// Toolkit attributes
	AttrToolkitActions = "unifai.toolkit.actions"
	AttrToolkitCount   = "unifai.toolkit.action_count"

	// Agent tool attributes
	AttrToolName   = "unifai.tool.name"
	AttrToolCallID = "unifai.tool.call_id"
	AttrToolQuery  = "unifai.tool.query"

	// Platform API attributes
	AttrAPIMethod = "http.request.method"
	AttrAPIPath   = "url.path"
	AttrAPIStatus = "http.response.status_code"
)

// ActionAttributes returns common attributes for a dispatched call.
func ActionAttributes(action, actionID, agentID, requestID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrActionName, action),
	}
	if actionID != "" {
		attrs = append(attrs, attribute.String(AttrActionID, actionID))
	}
	if agentID != "" {
		attrs = append(attrs, attribute.String(AttrActionAgentID, agentID))
	}
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrActionRequest, requestID))
	}
	return attrs
}

// ActionResultAttributes describes how a call finished. An empty kind means success.
func ActionResultAttributes(kind string, durationMs float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrActionKind, resultKind(kind)),
		attribute.Bool(AttrActionSuccess, kind == ""),
		attribute.Float64(AttrActionDuration, durationMs),
	}
}

// ActionPayloadAttributes returns attributes with the call payload and output
// (truncated for safety).
func ActionPayloadAttributes(payload, output string, maxLen int) []attribute.KeyValue {
	if maxLen <= 0 {
		maxLen = 500
	}
	attrs := []attribute.KeyValue{}
	if payload != "" {
		attrs = append(attrs, attribute.String(AttrActionPayload, truncate(payload, maxLen)))
	}
	if output != "" {
		attrs = append(attrs, attribute.String(AttrActionOutput, truncate(output, maxLen)))
	}
	return attrs
}

// ToolkitAttributes describes the actions a toolkit registered.
func ToolkitAttributes(names []string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrToolkitCount, len(names)),
	}
	if len(names) > 0 {
		attrs = append(attrs, attribute.StringSlice(AttrToolkitActions, names))
	}
	return attrs
}

// ToolCallAttributes returns attributes for an agent tool call span.
func ToolCallAttributes(name, callID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrToolName, name),
	}
	if callID != "" {
		attrs = append(attrs, attribute.String(AttrToolCallID, callID))
	}
	return attrs
}

// APIAttributes returns attributes for a platform HTTP request.
func APIAttributes(method, path string, status int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrAPIMethod, method),
		attribute.String(AttrAPIPath, path),
	}
	if status > 0 {
		attrs = append(attrs, attribute.Int(AttrAPIStatus, status))
	}
	return attrs
}

func resultKind(kind string) string {
	if kind == "" {
		return "success"
	}
	return kind
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
