// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/unifai-network/unifai-sdk-go/pkg/api"
	"github.com/unifai-network/unifai-sdk-go/pkg/config"
	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
	"github.com/unifai-network/unifai-sdk-go/pkg/resilience"
)

func runSearch(ctx context.Context, flags globalFlags, cfg *config.Config, args []string) error {
	query, rest := splitPositional(args)
	cmd := newFlagSet("search")
	limit := cmd.Int("limit", cfg.Agent.SearchLimit, "maximum number of results (1-100)")
	if err := cmd.Parse(rest); err != nil {
		return NewInvalidArgumentError("search", err.Error())
	}
	if query == "" {
		query = strings.Join(cmd.Args(), " ")
	} else if err := ensureNoArgs(cmd.Args()); err != nil {
		return err
	}
	if strings.TrimSpace(query) == "" {
		return NewInvalidArgumentError("query", "usage: unifai search <query> [--limit N]")
	}

	client, err := agentClient(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()

	result, err := client.Search(ctx, api.SearchRequest{Query: query, Limit: *limit})
	if err != nil {
		return err
	}
	return printValue(flags.Output, result)
}

func runCall(ctx context.Context, flags globalFlags, cfg *config.Config, args []string) error {
	action, rest := splitPositional(args)
	cmd := newFlagSet("call")
	payload := cmd.String("payload", "{}", "action payload (JSON, or plain text)")
	payment := cmd.Float64("payment", 0, "payment cap in USD (negative to request payment)")
	if err := cmd.Parse(rest); err != nil {
		return NewInvalidArgumentError("call", err.Error())
	}
	if err := ensureNoArgs(cmd.Args()); err != nil {
		return err
	}
	if action == "" {
		return NewInvalidArgumentError("action", "usage: unifai call <action> --payload <json>")
	}

	req := api.CallRequest{Action: action, Payload: parsePayload(*payload)}
	if flagWasSet(cmd, "payment") {
		req.Payment = payment
	}

	client, err := agentClient(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()

	result, err := client.Call(ctx, req)
	if err != nil {
		return err
	}
	return printValue(flags.Output, result)
}

func agentClient(cfg *config.Config) (*api.Client, error) {
	if strings.TrimSpace(cfg.Agent.APIKey) == "" {
		return nil, NewMissingKeyError("agent.api_key", "UNIFAI_AGENT_API_KEY")
	}
	return api.New(cfg.Agent.APIKey,
		api.WithEndpoints(cfg.Endpoints.API()),
		api.WithLogger(slog.Default()),
		api.WithCircuitBreaker(platformBreaker("unifai-agent-api")),
	), nil
}

// platformBreaker trips after repeated transient platform failures so a
// long-running command stops hammering an unhealthy backend. Rejections such
// as bad arguments or auth errors do not count.
func platformBreaker(name string) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Timeout:          15 * time.Second,
		IsFailure:        errors.IsRecoverable,
	})
}

// parsePayload keeps JSON payloads structured and sends anything else as a
// JSON string.
func parsePayload(raw string) any {
	raw = strings.TrimSpace(raw)
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	return raw
}

// splitPositional separates a leading positional argument from flags so
// "search <query> --limit 5" parses like "search --limit 5 <query>".
func splitPositional(args []string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", args
	}
	return args[0], args[1:]
}

func newFlagSet(name string) *flag.FlagSet {
	cmd := flag.NewFlagSet(name, flag.ContinueOnError)
	cmd.SetOutput(io.Discard)
	return cmd
}

func flagWasSet(cmd *flag.FlagSet, name string) bool {
	set := false
	cmd.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
