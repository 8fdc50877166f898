// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"math"

	"github.com/unifai-network/unifai-sdk-go/pkg/api"
	"github.com/unifai-network/unifai-sdk-go/pkg/llm"
)

// SearchToolName is the function name models use to search for services.
const SearchToolName = "search_services"

const (
	// DefaultSearchLimit is used when the model does not pass a limit.
	DefaultSearchLimit = 10
	maxSearchLimit     = 100
)

// Searcher queries the service catalogue. *api.Client implements it.
type Searcher interface {
	Search(ctx context.Context, req api.SearchRequest) (json.RawMessage, error)
}

// SearchTool lets a model discover services on the platform.
type SearchTool struct {
	client       Searcher
	defaultLimit int
}

// NewSearchTool builds the search_services tool.
func NewSearchTool(client Searcher) *SearchTool {
	return &SearchTool{client: client, defaultLimit: DefaultSearchLimit}
}

// Name returns search_services.
func (t *SearchTool) Name() string {
	return SearchToolName
}

// ToolDefinition describes the tool to a model.
func (t *SearchTool) ToolDefinition() llm.Tool {
	return llm.NewFunctionTool(SearchToolName,
		"Search for tools. The tools cover a wide range of domains include data source, API, SDK, etc. Try searching whenever you need to use a tool.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The query to search for tools, you can describe what you want to do or what tools you want to use",
				},
				"limit": map[string]any{
					"type":        "number",
					"description": "The maximum number of tools to return, must be between 1 and 100, default is 10, recommend at least 10",
				},
			},
			"required": []string{"query"},
		})
}

// Call runs a search. Input is an argument object or a bare query string.
func (t *SearchTool) Call(ctx context.Context, input any) (any, error) {
	args, err := normalizeArgs(input, "query")
	if err != nil {
		return nil, err
	}
	query, err := requiredString(args, "query")
	if err != nil {
		return nil, err
	}
	limit, err := optionalNumber(args, "limit")
	if err != nil {
		return nil, err
	}
	return t.client.Search(ctx, api.SearchRequest{Query: query, Limit: t.clampLimit(limit)})
}

func (t *SearchTool) clampLimit(limit *float64) int {
	if limit == nil || *limit < 1 {
		return t.defaultLimit
	}
	return int(math.Min(math.Round(*limit), maxSearchLimit))
}
