// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package api is the HTTP client for the Unifai platform: service search and
// invocation for agents, toolkit metadata updates and transaction creation
// for toolkits.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
	"github.com/unifai-network/unifai-sdk-go/pkg/resilience"
	"github.com/unifai-network/unifai-sdk-go/pkg/telemetry"
)

// Default platform endpoints.
const (
	DefaultBackendEndpoint     = "https://backend.unifai.network/api/v1"
	DefaultFrontendEndpoint    = "https://unifai.network/api"
	DefaultTransactionEndpoint = "https://txbuilder.unifai.network/api"
	DefaultWebSocketEndpoint   = "wss://backend.unifai.network/ws"
)

// DefaultCallTimeout bounds a single service invocation.
const DefaultCallTimeout = 50 * time.Second

// Endpoints are the base URLs of the platform services.
type Endpoints struct {
	Backend     string
	Frontend    string
	Transaction string
	WebSocket   string
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Backend:     DefaultBackendEndpoint,
		Frontend:    DefaultFrontendEndpoint,
		Transaction: DefaultTransactionEndpoint,
		WebSocket:   DefaultWebSocketEndpoint,
	}
}

// EndpointsFromEnv returns the default endpoints with the
// UNIFAI_BACKEND_API_ENDPOINT and UNIFAI_TRANSACTION_API_ENDPOINT overrides
// applied.
func EndpointsFromEnv() Endpoints {
	ep := DefaultEndpoints()
	if v := strings.TrimSpace(os.Getenv("UNIFAI_BACKEND_API_ENDPOINT")); v != "" {
		ep.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("UNIFAI_TRANSACTION_API_ENDPOINT")); v != "" {
		ep.Transaction = v
	}
	return ep
}

// withDefaults fills empty fields from d.
func (e Endpoints) withDefaults(d Endpoints) Endpoints {
	if e.Backend == "" {
		e.Backend = d.Backend
	}
	if e.Frontend == "" {
		e.Frontend = d.Frontend
	}
	if e.Transaction == "" {
		e.Transaction = d.Transaction
	}
	if e.WebSocket == "" {
		e.WebSocket = d.WebSocket
	}
	return e
}

// Client talks to the platform HTTP APIs.
type Client struct {
	apiKey      string
	bearer      bool
	endpoints   Endpoints
	httpClient  *http.Client
	retry       resilience.RetryConfig
	breaker     *resilience.CircuitBreaker
	callTimeout time.Duration
	logger      *slog.Logger
	metrics     *telemetry.DispatchMetrics
	tracer      trace.Tracer
}

// Option configures the client.
type Option func(*Client)

// New creates a client authenticated with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		endpoints:   EndpointsFromEnv(),
		httpClient:  http.DefaultClient,
		retry:       resilience.DefaultRetryConfig(),
		callTimeout: DefaultCallTimeout,
		logger:      slog.Default(),
		tracer:      otel.Tracer("unifai/api"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// WithEndpoints overrides the platform endpoints. Empty fields keep their
// current value.
func WithEndpoints(ep Endpoints) Option {
	return func(c *Client) {
		c.endpoints = ep.withDefaults(c.endpoints)
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBearerScheme sends "Authorization: Bearer <key>" instead of the raw key.
func WithBearerScheme() Option {
	return func(c *Client) {
		c.bearer = true
	}
}

// WithRetry sets the retry policy for idempotent requests.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithCircuitBreaker guards every request with cb.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// WithCallTimeout overrides the per-request timeout of Call.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.callTimeout = d
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records failed requests on m.
func WithMetrics(m *telemetry.DispatchMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Endpoints returns the endpoints in use.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// SearchRequest queries the service catalogue.
type SearchRequest struct {
	Query string `json:"query"`
	// Limit is the maximum number of results (1-100). Zero lets the platform decide.
	Limit int `json:"limit,omitempty"`
}

// CallRequest invokes a service found through Search.
type CallRequest struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
	// Payment is an amount in USD. Positive caps what the caller is charged,
	// negative asks to be paid at least that amount.
	Payment *float64 `json:"payment,omitempty"`
}

// ToolkitInfo is the public name and description of a toolkit.
type ToolkitInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TransactionRequest asks the transaction service to build a transaction on
// behalf of an action call.
type TransactionRequest struct {
	AgentID    any    `json:"agentId"`
	ActionID   any    `json:"actionId"`
	ActionName string `json:"actionName"`
	Type       string `json:"type"`
	Payload    any    `json:"payload"`
}

// Search queries the service catalogue. Recoverable failures are retried.
func (c *Client) Search(ctx context.Context, req SearchRequest) (json.RawMessage, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New(errors.CodeInvalidArguments, "search query is required", nil)
	}
	query := url.Values{}
	query.Set("query", req.Query)
	if req.Limit > 0 {
		query.Set("limit", strconv.Itoa(req.Limit))
	}
	endpoint := joinURL(c.endpoints.Backend, "/actions/search") + "?" + query.Encode()

	return resilience.DoWithResult(ctx, c.retry, func() (json.RawMessage, error) {
		return c.do(ctx, http.MethodGet, endpoint, nil)
	})
}

// Call invokes a service. It is not retried since the platform may already
// have charged for or executed the first attempt.
func (c *Client) Call(ctx context.Context, req CallRequest) (json.RawMessage, error) {
	if strings.TrimSpace(req.Action) == "" {
		return nil, errors.New(errors.CodeInvalidArguments, "action is required", nil)
	}
	if req.Payload == nil {
		return nil, errors.New(errors.CodeInvalidArguments, "payload is required", nil)
	}
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}
	return c.do(ctx, http.MethodPost, joinURL(c.endpoints.Backend, "/actions/call"), req)
}

// UpdateToolkitInfo sets the toolkit name and description.
func (c *Client) UpdateToolkitInfo(ctx context.Context, info ToolkitInfo) error {
	_, err := resilience.DoWithResult(ctx, c.retry, func() (json.RawMessage, error) {
		return c.do(ctx, http.MethodPost, joinURL(c.endpoints.Frontend, "/toolkits/fields/"), info)
	})
	return err
}

// CreateTransaction asks the transaction service to build a transaction.
func (c *Client) CreateTransaction(ctx context.Context, req TransactionRequest) (json.RawMessage, error) {
	if strings.TrimSpace(req.Type) == "" {
		return nil, errors.New(errors.CodeInvalidArguments, "transaction type is required", nil)
	}
	return c.do(ctx, http.MethodPost, joinURL(c.endpoints.Transaction, "/tx/create"), req)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (json.RawMessage, error) {
	var out json.RawMessage
	call := func() error {
		var err error
		out, err = c.doJSON(ctx, method, endpoint, payload)
		return err
	}
	var err error
	if c.breaker != nil {
		err = c.breaker.Call(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		c.metrics.RecordAPIError(ctx, err, pathOf(endpoint))
		return nil, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload any) (json.RawMessage, error) {
	path := pathOf(endpoint)
	ctx, span := c.tracer.Start(ctx, "unifai.api "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.APIAttributes(method, path, 0)...))
	defer span.End()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.New(errors.CodeInvalidArguments, "encode request body", err)
		}
		body = bytes.NewReader(raw)
	}
	request, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, errors.New(errors.CodeConfiguration, "build request", err).
			WithContext("endpoint", endpoint)
	}
	c.applyHeaders(ctx, request)

	response, err := c.httpClient.Do(request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.New(errors.CodeTimeout, "request timed out", err).
				WithContext("path", path)
		}
		if ctx.Err() != nil {
			return nil, errors.New(errors.CodeContextLost, "request cancelled", err)
		}
		return nil, errors.New(errors.CodeTransport, "request failed", err).
			WithContext("path", path).
			WithRecoverable(true)
	}
	defer response.Body.Close()
	span.SetAttributes(attribute.Int(telemetry.AttrAPIStatus, response.StatusCode))

	bodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.New(errors.CodeTransport, "read response", err).WithRecoverable(true)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		apiErr := parseHTTPError(response.StatusCode, bodyBytes).WithContext("path", path)
		span.SetStatus(codes.Error, apiErr.Message)
		c.logger.DebugContext(ctx, "platform request failed",
			"method", method, "path", path, "status", response.StatusCode)
		return nil, apiErr
	}
	return asJSON(bodyBytes), nil
}

func (c *Client) applyHeaders(ctx context.Context, request *http.Request) {
	auth := c.apiKey
	if c.bearer {
		auth = "Bearer " + c.apiKey
	}
	request.Header.Set("Authorization", auth)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(request.Header))
}

const maxErrorBody = 512

func parseHTTPError(status int, body []byte) *errors.UnifaiError {
	detail := strings.TrimSpace(string(body))
	var decoded struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil {
		for _, candidate := range []string{decoded.Message, decoded.Detail, decoded.Error} {
			if strings.TrimSpace(candidate) != "" {
				detail = strings.TrimSpace(candidate)
				break
			}
		}
	}
	if len(detail) > maxErrorBody {
		detail = detail[:maxErrorBody] + "..."
	}
	if detail == "" {
		detail = http.StatusText(status)
	}

	code := errors.CodeAPI
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		code = errors.CodeUnauthorized
	}
	recoverable := status >= 500 || status == http.StatusTooManyRequests
	return errors.New(code, fmt.Sprintf("platform returned %d: %s", status, detail), nil).
		WithStatusCode(status).
		WithRecoverable(recoverable)
}

// asJSON returns body unchanged when it is valid JSON, or as a JSON string otherwise.
func asJSON(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func pathOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	return u.Path
}
