// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"github.com/unifai-network/unifai-sdk-go/pkg/config"
	unifaimcp "github.com/unifai-network/unifai-sdk-go/pkg/mcp"
	"github.com/unifai-network/unifai-sdk-go/pkg/telemetry"
	"github.com/unifai-network/unifai-sdk-go/pkg/toolkit"
	"github.com/unifai-network/unifai-sdk-go/pkg/tools"
)

type mcpToolResult struct {
	Tool mcptypes.Tool `json:"tool"`
}

func runMCP(ctx context.Context, flags globalFlags, cfg *config.Config, logger *slog.Logger, args []string) error {
	if len(args) == 0 {
		return NewInvalidArgumentError("mcp", "usage: unifai mcp serve|list")
	}
	switch args[0] {
	case "serve":
		return runMCPServe(cfg, logger, args[1:])
	case "list":
		return runMCPList(ctx, flags, args[1:])
	default:
		return NewInvalidArgumentError("mcp", fmt.Sprintf("unknown mcp command %q", args[0]))
	}
}

func runMCPServe(cfg *config.Config, logger *slog.Logger, args []string) error {
	cmd := newFlagSet("mcp serve")
	actions := cmd.Bool("actions", false, "serve the built-in echo action instead of the agent tools")
	addr := cmd.String("http", "", "serve streamable HTTP on addr instead of stdio")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("mcp serve", err.Error())
	}
	if err := ensureNoArgs(cmd.Args()); err != nil {
		return err
	}

	srv := unifaimcp.NewServer(serviceName, version, unifaimcp.WithLogger(logger))
	if *actions {
		reg, d, cleanup, err := localDispatcher(cfg, logger, echoAction())
		if err != nil {
			return err
		}
		defer cleanup()
		srv.RegisterActions(reg, d)
	} else {
		client, err := agentClient(cfg)
		if err != nil {
			return err
		}
		ts := tools.New(cfg.Agent.APIKey,
			tools.WithClient(client),
			tools.WithSearchLimit(cfg.Agent.SearchLimit),
			tools.WithLogger(logger),
		)
		if err := srv.RegisterToolset(ts); err != nil {
			return err
		}
	}

	if *addr != "" {
		logger.Info("serving mcp over http", "addr", *addr)
		return srv.ServeHTTP(*addr)
	}
	return srv.ServeStdio()
}

// localDispatcher serves actions without a platform connection.
func localDispatcher(cfg *config.Config, logger *slog.Logger, actions ...toolkit.Action) (*toolkit.Registry, *toolkit.Dispatcher, func(), error) {
	reg := toolkit.NewRegistry()
	for _, action := range actions {
		if err := reg.Register(action); err != nil {
			return nil, nil, nil, err
		}
	}
	if err := reg.Freeze(); err != nil {
		return nil, nil, nil, err
	}

	store, closeStore, err := openJournal(cfg.Journal)
	if err != nil {
		return nil, nil, nil, err
	}
	metrics, err := telemetry.NewDispatchMetrics()
	if err != nil {
		closeStore()
		return nil, nil, nil, err
	}
	opts := []toolkit.Option{
		toolkit.WithLogger(logger),
		toolkit.WithMetrics(metrics),
		toolkit.WithCallTimeout(time.Duration(cfg.Toolkit.CallTimeoutSeconds) * time.Second),
		toolkit.WithMaxConcurrency(cfg.Toolkit.MaxConcurrency),
	}
	if store != nil {
		opts = append(opts, toolkit.WithJournal(store))
	}
	return reg, toolkit.NewDispatcher(reg, opts...), closeStore, nil
}

func runMCPList(ctx context.Context, flags globalFlags, args []string) error {
	cmd := newFlagSet("mcp list")
	serverURL := cmd.String("url", "", "streamable HTTP URL of the MCP server")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("mcp list", err.Error())
	}
	command := cmd.Args()
	if (*serverURL == "") == (len(command) == 0) {
		return NewInvalidArgumentError("mcp list", "usage: unifai mcp list (--url <mcp-url> | -- <command> [args])")
	}

	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()
	var (
		client *unifaimcp.Client
		err    error
	)
	if *serverURL != "" {
		client, err = unifaimcp.NewClientWithStreamableHTTP(ctx, *serverURL)
	} else {
		client, err = unifaimcp.NewClientWithStdio(ctx, command[0], nil, command[1:])
	}
	if err != nil {
		return err
	}
	defer client.Close()

	list, err := client.ListTools(ctx)
	if err != nil {
		return err
	}
	results := make([]mcpToolResult, 0, len(list))
	for _, tool := range list {
		results = append(results, mcpToolResult{Tool: tool})
	}

	if flags.Output != outputText {
		return printValue(flags.Output, results)
	}
	writer := newTabWriter()
	writeRow(writer, "TOOL", "DESCRIPTION")
	for _, res := range results {
		writeRow(writer, res.Tool.Name, truncateMessage(strings.TrimSpace(res.Tool.Description), 80))
	}
	return writer.Flush()
}
