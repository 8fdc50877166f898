// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/unifai-network/unifai-sdk-go/pkg/api"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Endpoints.Backend != api.DefaultBackendEndpoint {
		t.Errorf("expected default backend, got %s", cfg.Endpoints.Backend)
	}
	if cfg.Endpoints.WebSocket != api.DefaultWebSocketEndpoint {
		t.Errorf("expected default websocket endpoint, got %s", cfg.Endpoints.WebSocket)
	}
	if cfg.Toolkit.CallTimeoutSeconds != 60 {
		t.Errorf("expected 60s call timeout, got %d", cfg.Toolkit.CallTimeoutSeconds)
	}
	if cfg.Toolkit.PingIntervalSeconds != 30 {
		t.Errorf("expected 30s ping interval, got %d", cfg.Toolkit.PingIntervalSeconds)
	}
	if cfg.Toolkit.ReconnectMaxDelaySeconds != 30 {
		t.Errorf("expected 30s reconnect cap, got %d", cfg.Toolkit.ReconnectMaxDelaySeconds)
	}
	if cfg.Telemetry.Exporter != "none" {
		t.Errorf("expected telemetry exporter none, got %s", cfg.Telemetry.Exporter)
	}
	if cfg.Journal.Enabled {
		t.Errorf("expected journal disabled by default")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("UNIFAI_AGENT_API_KEY", "agent-key")
	t.Setenv("UNIFAI_TOOLKIT_API_KEY", "toolkit-key")
	t.Setenv("UNIFAI_TOOLKIT_MAX_CONCURRENCY", "8")
	t.Setenv("UNIFAI_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Agent.APIKey != "agent-key" {
		t.Errorf("expected agent key from env, got %q", cfg.Agent.APIKey)
	}
	if cfg.Toolkit.APIKey != "toolkit-key" {
		t.Errorf("expected toolkit key from env, got %q", cfg.Toolkit.APIKey)
	}
	if cfg.Toolkit.MaxConcurrency != 8 {
		t.Errorf("expected max concurrency 8, got %d", cfg.Toolkit.MaxConcurrency)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
}

func TestLoadLegacyEndpointEnv(t *testing.T) {
	t.Setenv("UNIFAI_BACKEND_API_ENDPOINT", "http://localhost:9000/api")
	t.Setenv("UNIFAI_TRANSACTION_API_ENDPOINT", "http://localhost:9001")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Endpoints.Backend != "http://localhost:9000/api" {
		t.Errorf("expected legacy backend override, got %s", cfg.Endpoints.Backend)
	}
	if cfg.Endpoints.Transaction != "http://localhost:9001" {
		t.Errorf("expected legacy transaction override, got %s", cfg.Endpoints.Transaction)
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"UNIFAI_LOG_LEVEL", "log.level"},
		{"UNIFAI_AGENT_API_KEY", "agent.api_key"},
		{"UNIFAI_TOOLKIT_CALL_TIMEOUT_SECONDS", "toolkit.call_timeout_seconds"},
		{"UNIFAI_BACKEND_API_ENDPOINT", "endpoints.backend"},
	}
	for _, tt := range tests {
		if got := envKey(tt.in); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadWithProfile(t *testing.T) {
	tmpDir := t.TempDir()

	baseConfig := `
toolkit:
  name: "Echo"
  description: "Echoes input"
log:
  level: "info"
`
	basePath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(basePath, []byte(baseConfig), 0o644); err != nil {
		t.Fatalf("failed to write base config: %v", err)
	}

	devConfig := `
toolkit:
  name: "Echo (dev)"
log:
  level: "debug"
`
	devPath := filepath.Join(tmpDir, "config.dev.yaml")
	if err := os.WriteFile(devPath, []byte(devConfig), 0o644); err != nil {
		t.Fatalf("failed to write dev config: %v", err)
	}

	tests := []struct {
		name      string
		profile   string
		wantName  string
		wantLevel string
		wantDesc  string
	}{
		{name: "no profile", profile: "", wantName: "Echo", wantLevel: "info", wantDesc: "Echoes input"},
		{name: "dev profile", profile: "dev", wantName: "Echo (dev)", wantLevel: "debug", wantDesc: "Echoes input"},
		{name: "missing profile falls back", profile: "prod", wantName: "Echo", wantLevel: "info", wantDesc: "Echoes input"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadWithProfile(basePath, tc.profile)
			if err != nil {
				t.Fatalf("LoadWithProfile failed: %v", err)
			}
			if cfg.Toolkit.Name != tc.wantName {
				t.Errorf("name: got %s, want %s", cfg.Toolkit.Name, tc.wantName)
			}
			if cfg.Log.Level != tc.wantLevel {
				t.Errorf("log level: got %s, want %s", cfg.Log.Level, tc.wantLevel)
			}
			if cfg.Toolkit.Description != tc.wantDesc {
				t.Errorf("description: got %s, want %s", cfg.Toolkit.Description, tc.wantDesc)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestProfileConfigPath(t *testing.T) {
	tmpDir := t.TempDir()

	devPath := filepath.Join(tmpDir, "config.dev.yaml")
	if err := os.WriteFile(devPath, []byte("test"), 0o644); err != nil {
		t.Fatalf("failed to create dev config: %v", err)
	}
	basePath := filepath.Join(tmpDir, "config.yaml")

	tests := []struct {
		name     string
		base     string
		profile  string
		wantPath string
	}{
		{name: "existing profile", base: basePath, profile: "dev", wantPath: devPath},
		{name: "nonexistent profile", base: basePath, profile: "prod", wantPath: ""},
		{name: "empty profile", base: basePath, profile: "", wantPath: ""},
		{name: "empty base", base: "", profile: "dev", wantPath: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := profileConfigPath(tc.base, tc.profile); got != tc.wantPath {
				t.Errorf("profileConfigPath(%q, %q) = %q, want %q", tc.base, tc.profile, got, tc.wantPath)
			}
		})
	}
}
