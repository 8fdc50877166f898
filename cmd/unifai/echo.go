// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/unifai-network/unifai-sdk-go/pkg/toolkit"
)

type echoArgs struct {
	Content string `json:"content" validate:"required"`
}

func echoAction() toolkit.Action {
	return toolkit.NewAction(toolkit.Definition{
		Name:        "echo",
		Description: "Echo the message",
		Payload: map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "The content to echo",
				"required":    true,
			},
		},
	}, func(_ context.Context, actx *toolkit.Context, params toolkit.Params[echoArgs]) (toolkit.Output[string], error) {
		return toolkit.Output[string]{
			Payload: fmt.Sprintf("You are agent <$%s>, you said \"%s\".", actx.AgentID, params.Payload.Content),
		}, nil
	})
}
