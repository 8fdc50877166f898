// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
	"github.com/unifai-network/unifai-sdk-go/pkg/resilience"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = 30 * time.Second
	clientName      = "unifai-mcp-bridge"
	clientVersion   = "0.1.0"
)

// ClientOption customizes the MCP client wrapper behavior.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetry sets the retry policy for listing tools. Tool calls are
// never retried since they may have side effects.
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithToolCacheTTL sets the tool discovery cache TTL. Use 0 to disable caching.
func WithToolCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		if ttl >= 0 {
			c.cacheTTL = ttl
		}
	}
}

// Client talks to an MCP server whose tools are bridged into a toolkit.
type Client struct {
	mcpClient client.MCPClient
	timeout   time.Duration
	retry     resilience.RetryConfig
	cacheTTL  time.Duration

	mu          sync.Mutex
	toolsCache  []mcp.Tool
	cacheExpiry time.Time
}

// NewClient wraps an initialized MCP client.
func NewClient(c client.MCPClient, opts ...ClientOption) *Client {
	cl := &Client{
		mcpClient: c,
		timeout:   defaultTimeout,
		retry: resilience.DefaultRetryConfig().
			WithMaxAttempts(3).
			WithInitialDelay(200 * time.Millisecond).
			WithIsRecoverable(isRetryable),
		cacheTTL: defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// NewClientWithStdio starts command and connects to it over stdio.
func NewClientWithStdio(ctx context.Context, command string, env, args []string, opts ...ClientOption) (*Client, error) {
	stdioClient, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, errors.New(errors.CodeTransport, "start mcp server", err)
	}
	// The subprocess outlives ctx, which only bounds the handshake.
	if err := stdioClient.Start(context.Background()); err != nil {
		stdioClient.Close()
		return nil, errors.New(errors.CodeTransport, "start mcp client", err)
	}
	return initialize(ctx, stdioClient, opts)
}

// NewClientWithStreamableHTTP connects to an MCP server over streamable HTTP.
func NewClientWithStreamableHTTP(ctx context.Context, url string, opts ...ClientOption) (*Client, error) {
	httpClient, err := client.NewStreamableHttpClient(url)
	if err != nil {
		return nil, errors.New(errors.CodeTransport, "create mcp http client", err)
	}
	if err := httpClient.Start(context.Background()); err != nil {
		httpClient.Close()
		return nil, errors.New(errors.CodeTransport, "start mcp client", err)
	}
	return initialize(ctx, httpClient, opts)
}

func initialize(ctx context.Context, c *client.Client, opts []ClientOption) (*Client, error) {
	initCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: clientVersion}
	if _, err := c.Initialize(initCtx, req); err != nil {
		c.Close()
		return nil, errors.New(errors.CodeTransport, "initialize mcp session", err)
	}
	return NewClient(c, opts...), nil
}

// ListTools retrieves the tools the server offers.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if cached := c.cachedTools(); cached != nil {
		return cached, nil
	}
	resp, err := resilience.DoWithResult(ctx, c.retry, func() (*mcp.ListToolsResult, error) {
		reqCtx, cancel := c.withTimeout(ctx)
		defer cancel()
		return c.mcpClient.ListTools(reqCtx, mcp.ListToolsRequest{})
	})
	if err != nil {
		return nil, err
	}
	c.storeTools(resp.Tools)
	return resp.Tools, nil
}

// CallTool executes a tool on the server once.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	reqCtx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.mcpClient.CallTool(reqCtx, req)
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.mcpClient.Close()
}

func (c *Client) cachedTools() []mcp.Tool {
	if c.cacheTTL == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.toolsCache) == 0 || time.Now().After(c.cacheExpiry) {
		return nil
	}
	out := make([]mcp.Tool, len(c.toolsCache))
	copy(out, c.toolsCache)
	return out
}

func (c *Client) storeTools(tools []mcp.Tool) {
	if c.cacheTTL == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolsCache = make([]mcp.Tool, len(tools))
	copy(c.toolsCache, tools)
	c.cacheExpiry = time.Now().Add(c.cacheTTL)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// isRetryable retries transport hiccups but not cancellation.
func isRetryable(err error) bool {
	return !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded)
}
