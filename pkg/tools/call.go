// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/unifai-network/unifai-sdk-go/pkg/api"
	"github.com/unifai-network/unifai-sdk-go/pkg/llm"
)

// CallToolName is the function name models use to invoke a service.
const CallToolName = "invoke_service"

// Caller invokes a service. *api.Client implements it.
type Caller interface {
	Call(ctx context.Context, req api.CallRequest) (json.RawMessage, error)
}

// CallTool lets a model invoke a service found with search_services.
type CallTool struct {
	client Caller
}

// NewCallTool builds the invoke_service tool.
func NewCallTool(client Caller) *CallTool {
	return &CallTool{client: client}
}

// Name returns invoke_service.
func (t *CallTool) Name() string {
	return CallToolName
}

// ToolDefinition describes the tool to a model.
func (t *CallTool) ToolDefinition() llm.Tool {
	return llm.NewFunctionTool(CallToolName,
		fmt.Sprintf("Call a tool returned by %s", SearchToolName),
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type":        "string",
					"description": fmt.Sprintf("The exact action you want to call in the %s result.", SearchToolName),
				},
				"payload": map[string]any{
					"type": "string",
					"description": fmt.Sprintf("Action payload, based on the payload schema in the %s result. "+
						"You can pass either the json object directly or json encoded string of the object.", SearchToolName),
				},
				"payment": map[string]any{
					"type": "number",
					"description": "Amount to authorize in USD. Positive number means you will be charged no more than this amount, " +
						"negative number means you are requesting to get paid for at least this amount. " +
						"Only include this field if the action you are calling includes payment information.",
				},
			},
			"required": []string{"action", "payload"},
		})
}

// Call invokes the named action with its payload.
func (t *CallTool) Call(ctx context.Context, input any) (any, error) {
	args, err := normalizeArgs(input, "")
	if err != nil {
		return nil, err
	}
	action, err := requiredString(args, "action")
	if err != nil {
		return nil, err
	}
	payload, ok := args["payload"]
	if !ok || payload == nil {
		return nil, invalidArgs(`tool args: missing required field "payload"`)
	}
	payment, err := optionalNumber(args, "payment")
	if err != nil {
		return nil, err
	}
	return t.client.Call(ctx, api.CallRequest{
		Action:  action,
		Payload: expandPayload(payload),
		Payment: payment,
	})
}

// expandPayload decodes a payload sent as a JSON-encoded string so the
// platform always receives the object.
func expandPayload(payload any) any {
	s, ok := payload.(string)
	if !ok {
		return payload
	}
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return payload
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return payload
	}
	return decoded
}
