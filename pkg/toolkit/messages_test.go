// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"encoding/json"
	"testing"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		numeric bool
		out     string
	}{
		{in: `42`, want: "42", numeric: true, out: `42`},
		{in: `"42"`, want: "42", numeric: true, out: `42`},
		{in: `"agent-7"`, want: "agent-7", out: `"agent-7"`},
		{in: `"007"`, want: "007", out: `"007"`},
		{in: `"-1"`, want: "-1", out: `"-1"`},
		{in: `null`, want: "", out: `null`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var id ID
			if err := json.Unmarshal([]byte(tt.in), &id); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if id != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, id)
			}
			if id.IsNumeric() != tt.numeric {
				t.Fatalf("expected numeric=%v", tt.numeric)
			}
			out, err := json.Marshal(id)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(out) != tt.out {
				t.Fatalf("expected %s, got %s", tt.out, out)
			}
		})
	}

	var id ID
	if err := json.Unmarshal([]byte(`{}`), &id); err == nil {
		t.Fatalf("expected an error for an object id")
	}
}

func TestCallRequestFieldAliases(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "camel", in: `{"action":"echo","actionID":7,"agentID":42,"payload":{"content":"hi"},"payment":1.5}`},
		{name: "snake", in: `{"action":"echo","action_id":"7","agent_id":"42","payload":{"content":"hi"},"payment":1.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CallRequest
			if err := json.Unmarshal([]byte(tt.in), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if req.Action != "echo" || req.ActionID != "7" || req.AgentID != "42" {
				t.Fatalf("unexpected request: %+v", req)
			}
			if string(req.Payload) != `{"content":"hi"}` {
				t.Fatalf("unexpected payload: %s", req.Payload)
			}
			if req.Payment == nil || *req.Payment != 1.5 {
				t.Fatalf("unexpected payment: %v", req.Payment)
			}
		})
	}
}

func TestRejectMalformedCall(t *testing.T) {
	data := json.RawMessage(`{"action":"swap","actionID":9,"agentID":"007","payment":"free"}`)
	var req CallRequest
	cause := json.Unmarshal(data, &req)
	if cause == nil {
		t.Fatal("expected the call to be malformed")
	}

	res, ok := rejectMalformedCall(data, cause)
	if !ok {
		t.Fatal("expected a rejection for a call with correlation fields")
	}
	if res.Action != "swap" || res.ActionID != "9" || res.AgentID != "007" {
		t.Fatalf("rejection lost its correlation fields: %+v", res)
	}
	if res.Error == nil || res.Error.Kind != KindInvalidArguments {
		t.Fatalf("expected InvalidArguments, got %+v", res.Error)
	}
	if _, err := EncodeMessage(MessageActionResult, res); err != nil {
		t.Fatalf("rejection must be encodable: %v", err)
	}

	if _, ok := rejectMalformedCall(json.RawMessage(`{"payment":"free"}`), cause); ok {
		t.Fatal("expected no rejection without correlation fields")
	}
	if _, ok := rejectMalformedCall(json.RawMessage(`[1,2]`), cause); ok {
		t.Fatal("expected no rejection for a non-object call")
	}
}

func TestCallResultWire(t *testing.T) {
	fee := 0.25
	ok := CallResult{Action: "echo", ActionID: "7", AgentID: "42", Output: json.RawMessage(`"hi"`), Payment: &fee}
	data, err := json.Marshal(ok)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if wire["output"] != "hi" || wire["payload"] != "hi" || wire["payment"] != 0.25 {
		t.Fatalf("unexpected success wire: %s", data)
	}
	if wire["actionID"] != float64(7) || wire["agentID"] != float64(42) {
		t.Fatalf("numeric ids should be written as numbers: %s", data)
	}
	if _, has := wire["error"]; has {
		t.Fatalf("success must not carry an error: %s", data)
	}

	failed := CallResult{Action: "nope", Error: &ResultError{Kind: KindUnknownAction, Message: "not registered"}, Payment: &fee}
	data, err = json.Marshal(failed)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	wire = nil
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	errObj, _ := wire["error"].(map[string]any)
	if errObj["kind"] != "UnknownAction" || errObj["message"] != "not registered" {
		t.Fatalf("unexpected error wire: %s", data)
	}
	if _, has := wire["output"]; has {
		t.Fatalf("failure must not carry output: %s", data)
	}
	if _, has := wire["payment"]; has {
		t.Fatalf("failure must not carry payment: %s", data)
	}

	var back CallResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if back.OK() || back.Error.Kind != KindUnknownAction {
		t.Fatalf("unexpected decoded result: %+v", back)
	}
}

func TestCallResultReadsLegacyPayload(t *testing.T) {
	var res CallResult
	if err := json.Unmarshal([]byte(`{"action":"echo","payload":{"n":1}}`), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !res.OK() || string(res.Output) != `{"n":1}` {
		t.Fatalf("expected payload to be read as output, got %+v", res)
	}
}

func TestEncodeMessage(t *testing.T) {
	data, err := EncodeMessage(MessageRegisterActions, RegisterActions{Actions: map[string]Definition{
		"echo": {Name: "echo", Description: "Echo"},
	}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != MessageRegisterActions {
		t.Fatalf("unexpected type %q", msg.Type)
	}
	var reg RegisterActions
	if err := json.Unmarshal(msg.Data, &reg); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if reg.Actions["echo"].Description != "Echo" {
		t.Fatalf("unexpected register payload: %s", msg.Data)
	}

	if _, err := EncodeMessage(MessageActionResult, make(chan int)); err == nil {
		t.Fatalf("expected an error for an unencodable payload")
	}
}
