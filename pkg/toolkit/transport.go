// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/coder/websocket"

	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
)

// maxFrameSize bounds a single inbound frame.
const maxFrameSize = 16 << 20

// ErrConnClosed is returned by Conn.Read once the platform closed the
// connection with a normal closure. Any other read error, including a bare
// EOF from a dropped socket, is a connection loss and triggers a reconnect.
var ErrConnClosed = stderrors.New("toolkit: connection closed by platform")

// Conn is a message-oriented connection to the platform.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Dialer opens a Conn to rawURL.
type Dialer func(ctx context.Context, rawURL string) (Conn, error)

// WebSocketDialer dials with coder/websocket. A nil client uses
// http.DefaultClient.
func WebSocketDialer(client *http.Client) Dialer {
	return func(ctx context.Context, rawURL string) (Conn, error) {
		conn, resp, err := websocket.Dial(ctx, rawURL, &websocket.DialOptions{HTTPClient: client})
		if err != nil {
			if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
				return nil, errors.New(errors.CodeUnauthorized, "toolkit api key rejected", err).
					WithStatusCode(resp.StatusCode)
			}
			return nil, errors.New(errors.CodeTransport, "dial toolkit endpoint", err).
				WithRecoverable(true)
		}
		conn.SetReadLimit(maxFrameSize)
		return &wsConn{conn: conn}, nil
	}
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return nil, ErrConnClosed
		}
		return nil, err
	}
	return data, nil
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *wsConn) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "toolkit stopped")
	if err != nil && websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		return nil
	}
	if stderrors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// toolkitURL builds the toolkit connection URL from the websocket endpoint.
func toolkitURL(endpoint, apiKey string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse websocket endpoint: %w", err)
	}
	q := u.Query()
	q.Set("type", "toolkit")
	q.Set("api-key", apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
