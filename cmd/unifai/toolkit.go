// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/unifai-network/unifai-sdk-go/pkg/api"
	"github.com/unifai-network/unifai-sdk-go/pkg/config"
	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
	"github.com/unifai-network/unifai-sdk-go/pkg/journal"
	unifaimcp "github.com/unifai-network/unifai-sdk-go/pkg/mcp"
	"github.com/unifai-network/unifai-sdk-go/pkg/telemetry"
	"github.com/unifai-network/unifai-sdk-go/pkg/toolkit"
)

func runToolkit(ctx context.Context, flags globalFlags, cfg *config.Config, logger *slog.Logger, args []string) error {
	if len(args) == 0 {
		return NewInvalidArgumentError("toolkit", "usage: unifai toolkit info|echo|bridge")
	}
	switch args[0] {
	case "info":
		return runToolkitInfo(ctx, flags, cfg, logger, args[1:])
	case "echo":
		if err := ensureNoArgs(args[1:]); err != nil {
			return err
		}
		return serveToolkit(ctx, flags, cfg, logger, echoAction())
	case "bridge":
		return runToolkitBridge(ctx, flags, cfg, logger, args[1:])
	default:
		return NewInvalidArgumentError("toolkit", fmt.Sprintf("unknown toolkit command %q", args[0]))
	}
}

func runToolkitInfo(ctx context.Context, flags globalFlags, cfg *config.Config, logger *slog.Logger, args []string) error {
	cmd := newFlagSet("toolkit info")
	name := cmd.String("name", cfg.Toolkit.Name, "toolkit name")
	description := cmd.String("description", cfg.Toolkit.Description, "toolkit description")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("toolkit info", err.Error())
	}
	if err := ensureNoArgs(cmd.Args()); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return NewInvalidArgumentError("name", "usage: unifai toolkit info --name <name> --description <text>")
	}

	svc, cleanup, err := newToolkitService(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()
	info := toolkit.ToolkitInfo{Name: *name, Description: *description}
	if err := svc.UpdateInfo(ctx, info); err != nil {
		return err
	}
	if flags.Output != outputText {
		return printValue(flags.Output, info)
	}
	fmt.Printf("toolkit info updated: %s\n", info.Name)
	return nil
}

func runToolkitBridge(ctx context.Context, flags globalFlags, cfg *config.Config, logger *slog.Logger, args []string) error {
	cmd := newFlagSet("toolkit bridge")
	serverURL := cmd.String("url", "", "streamable HTTP URL of the MCP server")
	prefix := cmd.String("prefix", "", "prefix added to every action name")
	var env multiFlag
	cmd.Var(&env, "env", "KEY=VALUE passed to the MCP server process (repeatable)")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("toolkit bridge", err.Error())
	}
	command := cmd.Args()
	if (*serverURL == "") == (len(command) == 0) {
		return NewInvalidArgumentError("toolkit bridge", "usage: unifai toolkit bridge [--prefix p] (--url <mcp-url> | -- <command> [args])")
	}

	dialCtx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()
	var (
		client *unifaimcp.Client
		err    error
	)
	clientOpts := []unifaimcp.ClientOption{unifaimcp.WithTimeout(flags.Timeout)}
	if *serverURL != "" {
		client, err = unifaimcp.NewClientWithStreamableHTTP(dialCtx, *serverURL, clientOpts...)
	} else {
		client, err = unifaimcp.NewClientWithStdio(dialCtx, command[0], env, command[1:], clientOpts...)
	}
	if err != nil {
		return err
	}
	defer client.Close()

	actions, err := unifaimcp.ActionsFromClient(dialCtx, client, *prefix)
	if err != nil {
		return err
	}
	logger.Info("bridging mcp tools", "tools", len(actions))
	return serveToolkit(ctx, flags, cfg, logger, actions...)
}

// serveToolkit runs a toolkit with actions until ctx is cancelled. When a
// config file is in use, edits to the toolkit name or description are pushed
// to the platform while the toolkit runs.
func serveToolkit(ctx context.Context, flags globalFlags, cfg *config.Config, logger *slog.Logger, actions ...toolkit.Action) error {
	svc, cleanup, err := newToolkitService(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, action := range actions {
		if err := svc.AddAction(action); err != nil {
			return err
		}
	}

	if cfg.Toolkit.Name != "" {
		if err := pushToolkitInfo(ctx, flags, svc, cfg.Toolkit); err != nil {
			return err
		}
	}

	if flags.ConfigPath != "" {
		stopWatch, err := watchToolkitInfo(ctx, flags, svc, logger)
		if err != nil {
			return err
		}
		defer stopWatch()
	}

	err = svc.Run(ctx)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func pushToolkitInfo(ctx context.Context, flags globalFlags, svc *toolkit.Service, tc config.ToolkitConfig) error {
	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()
	return svc.UpdateInfo(ctx, toolkit.ToolkitInfo{Name: tc.Name, Description: tc.Description})
}

// watchToolkitInfo republishes the toolkit name and description when the
// config file changes. Other edits are reported and wait for a restart.
func watchToolkitInfo(ctx context.Context, flags globalFlags, svc *toolkit.Service, logger *slog.Logger) (func(), error) {
	watcher, _, err := config.WatchConfig(ctx, flags.ConfigPath, flags.Profile,
		config.WithWatchLogger(logger),
		config.WithOnChange(func(ch config.Change) {
			if sections := ch.RestartRequired(); len(sections) > 0 {
				logger.Warn("config change needs a restart to apply", "sections", sections)
			}
			if !ch.ToolkitInfoChanged() {
				return
			}
			if err := pushToolkitInfo(ctx, flags, svc, ch.Current.Toolkit); err != nil {
				logger.Warn("toolkit info update failed", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, NewConfigError(err, flags.ConfigPath)
	}
	return watcher.Stop, nil
}

// newToolkitService builds a service from the toolkit section of cfg. The
// returned cleanup closes the journal.
func newToolkitService(cfg *config.Config, logger *slog.Logger) (*toolkit.Service, func(), error) {
	if strings.TrimSpace(cfg.Toolkit.APIKey) == "" {
		return nil, nil, NewMissingKeyError("toolkit.api_key", "UNIFAI_TOOLKIT_API_KEY")
	}
	store, closeStore, err := openJournal(cfg.Journal)
	if err != nil {
		return nil, nil, err
	}
	metrics, err := telemetry.NewDispatchMetrics()
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	opts := []toolkit.Option{
		toolkit.WithLogger(logger),
		toolkit.WithMetrics(metrics),
		toolkit.WithEndpoints(cfg.Endpoints.API()),
		toolkit.WithCallTimeout(time.Duration(cfg.Toolkit.CallTimeoutSeconds) * time.Second),
		toolkit.WithMaxConcurrency(cfg.Toolkit.MaxConcurrency),
		toolkit.WithPingInterval(time.Duration(cfg.Toolkit.PingIntervalSeconds) * time.Second),
	}
	if cfg.Toolkit.ReconnectMaxDelaySeconds > 0 {
		maxDelay := time.Duration(cfg.Toolkit.ReconnectMaxDelaySeconds) * time.Second
		opts = append(opts, toolkit.WithReconnect(toolkit.DefaultReconnect().WithMaxDelay(maxDelay)))
	}
	if store != nil {
		opts = append(opts, toolkit.WithJournal(store))
	}
	opts = append(opts, toolkit.WithAPIOptions(api.WithCircuitBreaker(platformBreaker("unifai-toolkit-api"))))
	return toolkit.NewService(cfg.Toolkit.APIKey, opts...), closeStore, nil
}

// openJournal opens the configured journal. A disabled journal yields a nil
// store.
func openJournal(jc config.JournalConfig) (journal.Store, func(), error) {
	noop := func() {}
	if !jc.Enabled {
		return nil, noop, nil
	}
	switch jc.Driver {
	case "", "memory":
		return journal.NewMemoryStore(), noop, nil
	case "sqlite":
		store, err := journal.OpenSQLite(jc.Path)
		if err != nil {
			return nil, nil, errors.New(errors.CodeConfiguration, "open journal "+jc.Path, err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, errors.Newf(errors.CodeConfiguration, "unknown journal driver %q", jc.Driver)
	}
}
