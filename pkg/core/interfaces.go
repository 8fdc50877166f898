// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package core defines the minimal interfaces shared across the SDK.
package core

import (
	"context"

	"github.com/unifai-network/unifai-sdk-go/pkg/llm"
)

// Tool is a callable capability exposed to a model.
type Tool interface {
	Name() string
	Call(ctx context.Context, input any) (any, error)
}

// DefinedTool is a Tool that can describe itself as a function tool.
type DefinedTool interface {
	Tool
	ToolDefinition() llm.Tool
}
