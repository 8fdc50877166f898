// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"encoding/json"
	"fmt"
)

// MessageType tags an envelope exchanged over the toolkit connection.
type MessageType string

const (
	MessageAction          MessageType = "action"
	MessageActionResult    MessageType = "actionResult"
	MessageRegisterActions MessageType = "registerActions"
)

// Message is the envelope of every frame on the toolkit connection.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeMessage wraps data in an envelope of type t.
func EncodeMessage(t MessageType, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", t, err)
	}
	return json.Marshal(Message{Type: t, Data: raw})
}

// RegisterActions is the payload announcing a toolkit's actions.
type RegisterActions struct {
	Actions map[string]Definition `json:"actions"`
}

// CallRequest is one inbound action call.
type CallRequest struct {
	Action   string          `json:"action"`
	ActionID ID              `json:"actionID,omitempty"`
	AgentID  ID              `json:"agentID,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	// Payment is an amount in USD attached to the call, if any.
	Payment *float64 `json:"payment,omitempty"`
}

// UnmarshalJSON accepts both camelCase and snake_case correlation fields.
func (r *CallRequest) UnmarshalJSON(data []byte) error {
	var wire struct {
		Action        string          `json:"action"`
		ActionID      ID              `json:"actionID"`
		ActionIDSnake ID              `json:"action_id"`
		AgentID       ID              `json:"agentID"`
		AgentIDSnake  ID              `json:"agent_id"`
		Payload       json.RawMessage `json:"payload"`
		Payment       *float64        `json:"payment"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = CallRequest{
		Action:   wire.Action,
		ActionID: firstID(wire.ActionID, wire.ActionIDSnake),
		AgentID:  firstID(wire.AgentID, wire.AgentIDSnake),
		Payload:  wire.Payload,
		Payment:  wire.Payment,
	}
	return nil
}

// rejectMalformedCall builds an InvalidArguments result for an action call
// that could not be decoded, as long as its correlation fields can still be
// read. It reports false when there is nothing to correlate a reply with.
func rejectMalformedCall(data json.RawMessage, cause error) (CallResult, bool) {
	var wire map[string]json.RawMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return CallResult{}, false
	}
	readID := func(keys ...string) ID {
		for _, key := range keys {
			var id ID
			if raw, ok := wire[key]; ok && json.Unmarshal(raw, &id) == nil && id != "" {
				return id
			}
		}
		return ""
	}
	var action string
	if raw, ok := wire["action"]; ok {
		_ = json.Unmarshal(raw, &action)
	}
	result := CallResult{
		Action:   action,
		ActionID: readID("actionID", "action_id"),
		AgentID:  readID("agentID", "agent_id"),
	}
	if result.Action == "" && result.ActionID == "" {
		return CallResult{}, false
	}
	return failed(result, KindInvalidArguments, "malformed action call: "+cause.Error()), true
}

func firstID(ids ...ID) ID {
	for _, id := range ids {
		if id != "" {
			return id
		}
	}
	return ""
}

// ErrorKind classifies a failed call.
type ErrorKind string

const (
	KindUnknownAction    ErrorKind = "UnknownAction"
	KindInvalidArguments ErrorKind = "InvalidArguments"
	KindHandlerError     ErrorKind = "HandlerError"
	KindTimeout          ErrorKind = "Timeout"
	KindInternalError    ErrorKind = "InternalError"
)

// ResultError describes why a call failed.
type ResultError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// CallResult is the single response to a CallRequest. Exactly one of Output
// and Error is set.
type CallResult struct {
	Action   string
	ActionID ID
	AgentID  ID
	Output   json.RawMessage
	Error    *ResultError
	Payment  *float64
}

// OK reports whether the call succeeded.
func (r CallResult) OK() bool {
	return r.Error == nil
}

type callResultWire struct {
	Action   string          `json:"action"`
	ActionID ID              `json:"actionID,omitempty"`
	AgentID  ID              `json:"agentID,omitempty"`
	Output   json.RawMessage `json:"output,omitempty"`
	Error    *ResultError    `json:"error,omitempty"`
	// Payload mirrors the outcome for platform versions that read the result
	// from "payload".
	Payload json.RawMessage `json:"payload,omitempty"`
	Payment *float64        `json:"payment,omitempty"`
}

// MarshalJSON writes {"output": ...} on success or {"error": {kind, message}}
// on failure, plus the correlation fields.
func (r CallResult) MarshalJSON() ([]byte, error) {
	wire := callResultWire{
		Action:   r.Action,
		ActionID: r.ActionID,
		AgentID:  r.AgentID,
	}
	if r.Error != nil {
		wire.Error = r.Error
		payload, err := json.Marshal(map[string]string{"error": r.Error.Message})
		if err != nil {
			return nil, err
		}
		wire.Payload = payload
	} else {
		output := r.Output
		if len(output) == 0 {
			output = json.RawMessage("null")
		}
		wire.Output = output
		wire.Payload = output
		wire.Payment = r.Payment
	}
	return json.Marshal(wire)
}

// UnmarshalJSON reads a result written by MarshalJSON.
func (r *CallResult) UnmarshalJSON(data []byte) error {
	var wire callResultWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = CallResult{
		Action:   wire.Action,
		ActionID: wire.ActionID,
		AgentID:  wire.AgentID,
		Output:   wire.Output,
		Error:    wire.Error,
		Payment:  wire.Payment,
	}
	if r.Error == nil && len(r.Output) == 0 {
		r.Output = wire.Payload
	}
	return nil
}
