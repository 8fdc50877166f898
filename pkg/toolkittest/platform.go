// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolkittest provides a fake Unifai platform for testing toolkits
// and agent tools without network access.
//
// The platform accepts toolkit connections, records action registrations,
// sends action calls and collects their results. It also serves the HTTP
// endpoints used by the agent tools and by toolkits, with scripted handlers:
//
//	p := toolkittest.NewPlatform(t)
//	svc := toolkit.NewService("key", toolkit.WithEndpoints(p.Endpoints()))
//	svc.AddAction(myAction)
//	runner, _ := svc.Start(ctx)
//	defer runner.Stop()
//
//	p.WaitRegistered(ctx)
//	res, _ := p.Call(ctx, "echo", "42", map[string]any{"content": "hi"})
//	toolkittest.AssertOutput(t, res, `You are agent <$42>, you said "hi".`)
package toolkittest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/coder/websocket"

	"github.com/unifai-network/unifai-sdk-go/pkg/api"
	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
	"github.com/unifai-network/unifai-sdk-go/pkg/toolkit"
)

// Request is an HTTP request received by the platform.
type Request struct {
	Method        string
	Path          string
	Query         map[string]string
	Authorization string
	Body          json.RawMessage
}

// Handler answers a scripted HTTP endpoint. A nil body is written as {}.
type Handler func(req Request) (status int, body any)

// Platform is a fake Unifai platform backed by an httptest server.
type Platform struct {
	server *httptest.Server

	mu          sync.Mutex
	conn        *websocket.Conn
	requests    []Request
	infos       []api.ToolkitInfo
	pending     map[string]chan toolkit.CallResult
	search      Handler
	call        Handler
	transaction Handler

	registered chan toolkit.RegisterActions
	nextID     atomic.Int64
}

// NewPlatform starts a platform that is closed when the test ends.
func NewPlatform(t testing.TB) *Platform {
	t.Helper()
	p := &Platform{
		pending:    make(map[string]chan toolkit.CallResult),
		registered: make(chan toolkit.RegisterActions, 16),
	}
	ok := func(Request) (int, any) { return http.StatusOK, nil }
	p.search = func(Request) (int, any) { return http.StatusOK, []any{} }
	p.call = ok
	p.transaction = ok

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", p.serveToolkit)
	mux.HandleFunc("POST /toolkits/fields/", p.serveInfo)
	mux.HandleFunc("GET /actions/search", p.serveScripted(func() Handler { return p.search }))
	mux.HandleFunc("POST /actions/call", p.serveScripted(func() Handler { return p.call }))
	mux.HandleFunc("POST /tx/create", p.serveScripted(func() Handler { return p.transaction }))
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

// Endpoints points every platform service at this platform.
func (p *Platform) Endpoints() api.Endpoints {
	return api.Endpoints{
		Backend:     p.server.URL,
		Frontend:    p.server.URL,
		Transaction: p.server.URL,
		WebSocket:   "ws" + strings.TrimPrefix(p.server.URL, "http") + "/ws",
	}
}

// URL is the base URL of the platform.
func (p *Platform) URL() string {
	return p.server.URL
}

// HandleSearch scripts GET /actions/search.
func (p *Platform) HandleSearch(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.search = h
}

// HandleCall scripts POST /actions/call.
func (p *Platform) HandleCall(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.call = h
}

// HandleTransaction scripts POST /tx/create.
func (p *Platform) HandleTransaction(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transaction = h
}

// Requests returns the HTTP requests received so far.
func (p *Platform) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.requests...)
}

// ToolkitInfos returns the toolkit info updates received so far.
func (p *Platform) ToolkitInfos() []api.ToolkitInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]api.ToolkitInfo(nil), p.infos...)
}

// WaitRegistered returns the next action registration. A toolkit registers
// once per connection, so it is also how tests observe reconnects.
func (p *Platform) WaitRegistered(ctx context.Context) (toolkit.RegisterActions, error) {
	select {
	case reg := <-p.registered:
		return reg, nil
	case <-ctx.Done():
		return toolkit.RegisterActions{}, ctx.Err()
	}
}

// Call sends an action call to the connected toolkit and waits for its
// result. payload may be raw JSON, a string or any JSON-encodable value.
func (p *Platform) Call(ctx context.Context, action string, agentID toolkit.ID, payload any) (toolkit.CallResult, error) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return toolkit.CallResult{}, errors.New(errors.CodeTransport, "no toolkit connected", nil)
	}

	actionID := strconv.FormatInt(p.nextID.Add(1), 10)
	raw, err := encodePayload(payload)
	if err != nil {
		return toolkit.CallResult{}, err
	}
	frame, err := toolkit.EncodeMessage(toolkit.MessageAction, toolkit.CallRequest{
		Action:   action,
		ActionID: toolkit.ID(actionID),
		AgentID:  agentID,
		Payload:  raw,
	})
	if err != nil {
		return toolkit.CallResult{}, err
	}

	done := make(chan toolkit.CallResult, 1)
	p.mu.Lock()
	p.pending[actionID] = done
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, actionID)
		p.mu.Unlock()
	}()

	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return toolkit.CallResult{}, errors.New(errors.CodeTransport, "send action call", err)
	}
	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return toolkit.CallResult{}, ctx.Err()
	}
}

// Send writes a raw frame to the connected toolkit.
func (p *Platform) Send(ctx context.Context, frame []byte) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return errors.New(errors.CodeTransport, "no toolkit connected", nil)
	}
	return conn.Write(ctx, websocket.MessageText, frame)
}

// Disconnect drops the toolkit connection without a close handshake. The
// toolkit treats this as a network failure and reconnects.
func (p *Platform) Disconnect() {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()
	if conn != nil {
		_ = conn.CloseNow()
	}
}

// Hangup closes the toolkit connection normally, which stops the toolkit.
func (p *Platform) Hangup() {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}
}

// Close drops any connection and stops the server.
func (p *Platform) Close() {
	p.Disconnect()
	p.server.Close()
}

func (p *Platform) serveToolkit(w http.ResponseWriter, r *http.Request) {
	p.record(r, nil)
	q := r.URL.Query()
	if q.Get("type") != "toolkit" || q.Get("api-key") == "" {
		http.Error(w, "missing toolkit credentials", http.StatusUnauthorized)
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			p.mu.Lock()
			if p.conn == conn {
				p.conn = nil
			}
			p.mu.Unlock()
			_ = conn.CloseNow()
			return
		}
		p.handleFrame(data)
	}
}

func (p *Platform) handleFrame(data []byte) {
	var msg toolkit.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	switch msg.Type {
	case toolkit.MessageRegisterActions:
		var reg toolkit.RegisterActions
		if err := json.Unmarshal(msg.Data, &reg); err == nil {
			select {
			case p.registered <- reg:
			default:
			}
		}
	case toolkit.MessageActionResult:
		var res toolkit.CallResult
		if err := json.Unmarshal(msg.Data, &res); err != nil {
			return
		}
		p.mu.Lock()
		done, ok := p.pending[string(res.ActionID)]
		p.mu.Unlock()
		if ok {
			select {
			case done <- res:
			default:
			}
		}
	}
}

func (p *Platform) serveInfo(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.record(r, body)
	var info api.ToolkitInfo
	if err := json.Unmarshal(body, &info); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.mu.Lock()
	p.infos = append(p.infos, info)
	p.mu.Unlock()
	writeJSON(w, http.StatusOK, nil)
}

func (p *Platform) serveScripted(handler func() Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req := p.record(r, body)
		p.mu.Lock()
		h := handler()
		p.mu.Unlock()
		status, out := h(req)
		writeJSON(w, status, out)
	}
}

func (p *Platform) record(r *http.Request, body []byte) Request {
	query := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}
	req := Request{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         query,
		Authorization: r.Header.Get("Authorization"),
	}
	if len(body) > 0 {
		req.Body = json.RawMessage(body)
	}
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	return req
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	if body == nil {
		body = map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		return raw, nil
	}
}
