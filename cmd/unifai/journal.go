// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/unifai-network/unifai-sdk-go/pkg/config"
	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
	"github.com/unifai-network/unifai-sdk-go/pkg/journal"
)

func runJournal(ctx context.Context, flags globalFlags, cfg *config.Config, args []string) error {
	if len(args) == 0 || args[0] != "list" {
		return NewInvalidArgumentError("journal", "usage: unifai journal list [--action a] [--agent id] [--failures] [--limit N]")
	}

	cmd := newFlagSet("journal list")
	action := cmd.String("action", "", "only calls of this action")
	agent := cmd.String("agent", "", "only calls from this agent id")
	kind := cmd.String("kind", "", "only failures of this kind")
	failures := cmd.Bool("failures", false, "only failed calls")
	limit := cmd.Int("limit", 50, "maximum number of entries")
	if err := cmd.Parse(args[1:]); err != nil {
		return NewInvalidArgumentError("journal list", err.Error())
	}
	if err := ensureNoArgs(cmd.Args()); err != nil {
		return err
	}
	if cfg.Journal.Driver != "sqlite" {
		return NewCLIError(
			errors.Newf(errors.CodeConfiguration, "journal driver %q keeps no history between runs", cfg.Journal.Driver),
			"set journal.driver=sqlite and journal.path for the toolkit and this command",
		)
	}

	store, err := journal.OpenSQLite(cfg.Journal.Path)
	if err != nil {
		return errors.New(errors.CodeConfiguration, "open journal "+cfg.Journal.Path, err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()
	entries, err := store.List(ctx, journal.Filter{
		Action:       *action,
		AgentID:      *agent,
		Kind:         *kind,
		FailuresOnly: *failures,
		Limit:        *limit,
	})
	if err != nil {
		return err
	}

	if flags.Output != outputText {
		return printValue(flags.Output, entries)
	}
	writer := newTabWriter()
	writeEntries(writer, entries)
	return writer.Flush()
}

func writeEntries(w io.Writer, entries []journal.Entry) {
	fmt.Fprintln(w, "STARTED\tACTION\tAGENT\tRESULT\tDURATION\tMESSAGE")
	for _, e := range entries {
		result := "ok"
		if e.Kind != "" {
			result = e.Kind
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			formatTime(e.StartedAt),
			normalizeCell(e.Action),
			normalizeCell(e.AgentID),
			result,
			e.Duration().Round(time.Millisecond),
			truncateMessage(e.Message, 60),
		)
	}
}
