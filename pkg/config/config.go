// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads SDK settings from defaults, files, environment
// variables and command-line overrides using koanf.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/unifai-network/unifai-sdk-go/pkg/api"
)

// EnvPrefix is the prefix for environment overrides (UNIFAI_LOG_LEVEL -> log.level).
const EnvPrefix = "UNIFAI_"

// Config is the complete SDK configuration.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Agent     AgentConfig     `koanf:"agent"`
	Toolkit   ToolkitConfig   `koanf:"toolkit"`
	Endpoints EndpointsConfig `koanf:"endpoints"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Journal   JournalConfig   `koanf:"journal"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

// AgentConfig holds settings for the agent-side search and call tools.
type AgentConfig struct {
	APIKey      string `koanf:"api_key"`
	SearchLimit int    `koanf:"search_limit"`
}

// ToolkitConfig holds settings for a toolkit service.
type ToolkitConfig struct {
	APIKey                   string `koanf:"api_key"`
	Name                     string `koanf:"name"`
	Description              string `koanf:"description"`
	CallTimeoutSeconds       int    `koanf:"call_timeout_seconds"`
	MaxConcurrency           int    `koanf:"max_concurrency"`
	PingIntervalSeconds      int    `koanf:"ping_interval_seconds"`
	ReconnectMaxDelaySeconds int    `koanf:"reconnect_max_delay_seconds"`
}

type EndpointsConfig struct {
	Backend     string `koanf:"backend"`
	Frontend    string `koanf:"frontend"`
	Transaction string `koanf:"transaction"`
	WebSocket   string `koanf:"websocket"`
}

type TelemetryConfig struct {
	Exporter           string            `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint       string            `koanf:"otlp_endpoint"`
	OTLPInsecure       bool              `koanf:"otlp_insecure"`
	OTLPTimeoutSeconds int               `koanf:"otlp_timeout_seconds"`
	OTLPHeaders        map[string]string `koanf:"otlp_headers"`
	OTLPUser           string            `koanf:"otlp_user"`
	OTLPToken          string            `koanf:"otlp_token"`
}

// JournalConfig selects where dispatched calls are recorded.
type JournalConfig struct {
	Enabled bool   `koanf:"enabled"`
	Driver  string `koanf:"driver"` // memory, sqlite
	Path    string `koanf:"path"`
}

// legacyEnv maps environment variables honoured for compatibility onto keys.
var legacyEnv = map[string]string{
	"UNIFAI_BACKEND_API_ENDPOINT":     "endpoints.backend",
	"UNIFAI_TRANSACTION_API_ENDPOINT": "endpoints.transaction",
}

// Load reads configuration from defaults, the optional file at path and the
// environment.
func Load(path string) (*Config, error) {
	return LoadWithProfile(path, "")
}

// LoadWithProfile is like Load but merges "<name>.<profile><ext>" next to
// path on top of the base file when it exists.
func LoadWithProfile(path, profile string) (*Config, error) {
	k, err := load(path, profile)
	if err != nil {
		return nil, err
	}
	return unmarshal(k)
}

// LoadWithCLI loads configuration using command-line style arguments:
//
//	--config <path>     config file (also --config=<path>)
//	--profile <name>    profile overlay (alias --env)
//	--set key=value     override any key; value is parsed as YAML
//
// Unrecognised arguments are ignored so callers can pass their full argv.
func LoadWithCLI(args []string) (*Config, error) {
	opts, sets, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	k, err := load(opts.path, opts.profile)
	if err != nil {
		return nil, err
	}
	for key, value := range sets {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set %s: %w", key, err)
		}
	}
	return unmarshal(k)
}

func load(path, profile string) (*koanf.Koanf, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("agent.search_limit", 10)
	k.Set("toolkit.call_timeout_seconds", 60)
	k.Set("toolkit.max_concurrency", 0)
	k.Set("toolkit.ping_interval_seconds", 30)
	k.Set("toolkit.reconnect_max_delay_seconds", 30)
	k.Set("endpoints.backend", api.DefaultBackendEndpoint)
	k.Set("endpoints.frontend", api.DefaultFrontendEndpoint)
	k.Set("endpoints.transaction", api.DefaultTransactionEndpoint)
	k.Set("endpoints.websocket", api.DefaultWebSocketEndpoint)
	k.Set("telemetry.exporter", "none")
	k.Set("telemetry.otlp_timeout_seconds", 10)
	k.Set("journal.enabled", false)
	k.Set("journal.driver", "memory")
	k.Set("journal.path", "unifai-journal.db")

	// 1. Load from file, then the profile overlay
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		if overlay := profileConfigPath(path, profile); overlay != "" {
			if err := k.Load(file.Provider(overlay), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load profile %s: %w", overlay, err)
			}
		}
	}

	// 2. Load from ENV (UNIFAI_TOOLKIT_API_KEY -> toolkit.api_key)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	return k, nil
}

// envKey maps an environment variable onto a config key. Only the first
// underscore after the prefix separates section from key, so multi-word keys
// like api_key survive.
func envKey(s string) string {
	if key, ok := legacyEnv[s]; ok {
		return key
	}
	rest := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(rest, "_", ".", 1)
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// profileConfigPath returns the overlay file for profile if it exists.
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(filepath.Base(base), ext)
	candidate := filepath.Join(filepath.Dir(base), name+"."+profile+ext)
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}

type cliOptions struct {
	path    string
	profile string
}

func parseCLIOverrides(args []string) (cliOptions, map[string]any, error) {
	var opts cliOptions
	sets := make(map[string]any)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "--config", "-config", "--profile", "-profile", "--env", "-env", "--set", "-set":
		default:
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return opts, nil, fmt.Errorf("missing value for %s", name)
			}
			i++
			value = args[i]
		}

		switch strings.TrimLeft(name, "-") {
		case "config":
			opts.path = value
		case "profile", "env":
			opts.profile = value
		case "set":
			key, raw, ok := strings.Cut(value, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return opts, nil, fmt.Errorf("invalid --set value %q, expected key=value", value)
			}
			sets[strings.TrimSpace(key)] = parseValue(raw)
		}
	}
	return opts, sets, nil
}

// parseValue decodes a --set value as YAML so numbers, booleans and inline
// objects keep their types. Unparseable input is kept as a string.
func parseValue(raw string) any {
	var v any
	if err := yamlv3.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	return v
}

// API converts the endpoint settings for the platform client.
func (e EndpointsConfig) API() api.Endpoints {
	return api.Endpoints{
		Backend:     e.Backend,
		Frontend:    e.Frontend,
		Transaction: e.Transaction,
		WebSocket:   e.WebSocket,
	}
}
