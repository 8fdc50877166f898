// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/unifai-network/unifai-sdk-go/pkg/api"
	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
)

// TransactionCreator builds platform transactions. *api.Client implements it.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, req api.TransactionRequest) (json.RawMessage, error)
}

// Context describes the call an action is serving.
type Context struct {
	Action    string
	ActionID  ID
	AgentID   ID
	RequestID string
	Payment   *float64
	Logger    *slog.Logger

	tx TransactionCreator
}

// CreateTransaction asks the platform to build a transaction of txType for
// the calling agent.
func (c *Context) CreateTransaction(ctx context.Context, txType string, payload any) (json.RawMessage, error) {
	if c.tx == nil {
		return nil, errors.New(errors.CodeConfiguration, "no transaction client configured", nil).
			WithContext("action", c.Action)
	}
	return c.tx.CreateTransaction(ctx, api.TransactionRequest{
		AgentID:    c.AgentID,
		ActionID:   c.ActionID,
		ActionName: c.Action,
		Type:       txType,
		Payload:    payload,
	})
}
