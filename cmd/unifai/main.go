// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package main implements the unifai CLI.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unifai-network/unifai-sdk-go/pkg/config"
	"github.com/unifai-network/unifai-sdk-go/pkg/telemetry"
)

const (
	serviceName = "unifai-cli"
	version     = "dev"
)

type outputFormat string

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)

type globalFlags struct {
	ConfigArgs []string
	ConfigPath string
	Profile    string
	Timeout    time.Duration
	Output     outputFormat
	Help       bool
}

// errorsAsJSON is set once global flags are parsed so fatal can honour --json.
var errorsAsJSON bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(NewInvalidArgumentError("flags", err.Error()))
	}
	errorsAsJSON = global.Output == outputJSON
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		fatal(NewConfigError(err, global.ConfigPath))
	}
	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig(serviceName, version, telemetryConfig(cfg))
	if err != nil {
		fatal(NewConfigError(fmt.Errorf("telemetry: %w", err), global.ConfigPath))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	cmd := args[0]
	switch cmd {
	case "search":
		err = runSearch(ctx, global, cfg, args[1:])
	case "call":
		err = runCall(ctx, global, cfg, args[1:])
	case "toolkit":
		err = runToolkit(ctx, global, cfg, logger, args[1:])
	case "mcp":
		err = runMCP(ctx, global, cfg, logger, args[1:])
	case "journal":
		err = runJournal(ctx, global, cfg, args[1:])
	case "help":
		printUsage()
	case "version":
		printVersion()
	default:
		err = NewInvalidArgumentError("command", fmt.Sprintf("unknown command %q", cmd))
	}
	if err != nil {
		// Deferred telemetry shutdown is skipped by os.Exit; flush first.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = shutdown(shutdownCtx)
		cancel()
		fatal(err)
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{
		Timeout: 30 * time.Second,
		Output:  outputText,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		name, value, hasValue := strings.Cut(arg, "=")
		takeValue := func() (string, error) {
			if hasValue {
				return value, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("missing value for %s", name)
			}
			i++
			return args[i], nil
		}

		switch name {
		case "-h", "--help":
			flags.Help = true
			return flags, nil, nil
		case "--json":
			flags.Output = outputJSON
		case "--yaml":
			flags.Output = outputYAML
		case "--config", "--profile", "--set":
			v, err := takeValue()
			if err != nil {
				return flags, nil, err
			}
			flags.ConfigArgs = append(flags.ConfigArgs, name, v)
			switch name {
			case "--config":
				flags.ConfigPath = v
			case "--profile":
				flags.Profile = v
			}
		case "--timeout":
			v, err := takeValue()
			if err != nil {
				return flags, nil, err
			}
			d, err := time.ParseDuration(v)
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = d
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	return telemetry.Config{
		Exporter:           cfg.Telemetry.Exporter,
		OTLPEndpoint:       cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:       cfg.Telemetry.OTLPInsecure,
		OTLPTimeoutSeconds: cfg.Telemetry.OTLPTimeoutSeconds,
		OTLPHeaders:        cfg.Telemetry.OTLPHeaders,
		OTLPUser:           cfg.Telemetry.OTLPUser,
		OTLPToken:          cfg.Telemetry.OTLPToken,
	}
}

// printValue writes value as JSON or YAML. YAML goes through a JSON round
// trip so json tags and raw JSON responses render as structure.
func printValue(format outputFormat, value any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return err
	}
	if format != outputYAML {
		fmt.Print(buf.String())
		return nil
	}

	var decoded any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		return fmt.Errorf("decode output: %w", err)
	}
	payload, err := yaml.Marshal(decoded)
	if err != nil {
		return err
	}
	fmt.Print(string(payload))
	return nil
}

func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
}

func writeRow(writer *tabwriter.Writer, cols ...string) {
	for i, col := range cols {
		cols[i] = normalizeCell(col)
	}
	fmt.Fprintln(writer, strings.Join(cols, "\t"))
}

func normalizeCell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), " ")
}

func truncateMessage(value string, limit int) string {
	value = normalizeCell(value)
	if limit <= 0 || len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format(time.RFC3339)
}

func printVersion() {
	fmt.Println(version)
}

func printUsage() {
	fmt.Println(`unifai CLI

Usage:
  unifai [global flags] <command> [args]

Global flags:
  --config <path>      Config file (YAML or JSON)
  --profile <name>     Profile overlay merged on top of the config file
  --set key=value      Override config (repeatable)
  --timeout <dur>      Request timeout (default 30s)
  --json               JSON output
  --yaml               YAML output

Commands:
  search <query> [--limit N]
  call <action> --payload <json> [--payment <usd>]
  toolkit info --name <name> --description <text>
  toolkit echo
  toolkit bridge [--prefix p] (--url <mcp-url> | -- <command> [args])
  mcp serve [--actions] [--http <addr>]
  mcp list (--url <mcp-url> | -- <command> [args])
  journal list [--action a] [--agent id] [--failures] [--limit N]
  version`)
}

func fatal(err error) {
	wrapError(err).PrintError(errorsAsJSON)
	os.Exit(1)
}

func ensureNoArgs(args []string) error {
	if len(args) > 0 {
		return NewInvalidArgumentError("args", fmt.Sprintf("unexpected args: %v", args))
	}
	return nil
}

type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}
