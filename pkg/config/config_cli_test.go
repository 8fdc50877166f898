// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithCLIOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	content := []byte(`{
  "toolkit": {"name": "from-file", "call_timeout_seconds": 5},
  "telemetry": {"exporter": "stdout"}
}`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("UNIFAI_TOOLKIT_NAME", "from-env")

	cfg, err := LoadWithCLI([]string{
		"serve",
		"--config", path,
		"--set", "toolkit.name=from-cli",
		"--set", "journal.enabled=true",
		"--set", "telemetry.otlp_timeout_seconds=12",
		"--set=endpoints.backend=http://localhost:8080/api",
	})
	if err != nil {
		t.Fatalf("LoadWithCLI failed: %v", err)
	}
	if cfg.Toolkit.Name != "from-cli" {
		t.Fatalf("expected cli override name, got %s", cfg.Toolkit.Name)
	}
	if cfg.Toolkit.CallTimeoutSeconds != 5 {
		t.Fatalf("expected file value to survive, got %d", cfg.Toolkit.CallTimeoutSeconds)
	}
	if !cfg.Journal.Enabled {
		t.Fatalf("expected journal.enabled=true")
	}
	if cfg.Telemetry.OTLPTimeoutSeconds != 12 {
		t.Fatalf("expected telemetry timeout override")
	}
	if cfg.Telemetry.Exporter != "stdout" {
		t.Fatalf("expected exporter from file, got %s", cfg.Telemetry.Exporter)
	}
	if cfg.Endpoints.Backend != "http://localhost:8080/api" {
		t.Fatalf("unexpected backend: %s", cfg.Endpoints.Backend)
	}
}

func TestLoadWithCLIProfile(t *testing.T) {
	tmpDir := t.TempDir()

	basePath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(basePath, []byte("toolkit:\n  name: base\n"), 0o644); err != nil {
		t.Fatalf("failed to write base config: %v", err)
	}
	devPath := filepath.Join(tmpDir, "config.dev.yaml")
	if err := os.WriteFile(devPath, []byte("toolkit:\n  name: dev\n"), 0o644); err != nil {
		t.Fatalf("failed to write dev config: %v", err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{name: "profile flag", args: []string{"--config", basePath, "--profile", "dev"}},
		{name: "env flag alias", args: []string{"--config", basePath, "--env", "dev"}},
		{name: "profile with equals", args: []string{"--config=" + basePath, "--profile=dev"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadWithCLI(tc.args)
			if err != nil {
				t.Fatalf("LoadWithCLI failed: %v", err)
			}
			if cfg.Toolkit.Name != "dev" {
				t.Errorf("name: got %s, want dev", cfg.Toolkit.Name)
			}
		})
	}
}

func TestLoadWithCLITelemetryHeaders(t *testing.T) {
	cfg, err := LoadWithCLI([]string{
		"--set", "telemetry.exporter=otlp",
		"--set", "telemetry.otlp_endpoint=localhost:4317",
		"--set", "telemetry.otlp_headers.x-api-key=secret-token",
	})
	if err != nil {
		t.Fatalf("LoadWithCLI failed: %v", err)
	}
	if cfg.Telemetry.Exporter != "otlp" {
		t.Errorf("expected exporter otlp, got %s", cfg.Telemetry.Exporter)
	}
	if cfg.Telemetry.OTLPEndpoint != "localhost:4317" {
		t.Errorf("expected endpoint, got %s", cfg.Telemetry.OTLPEndpoint)
	}
	if cfg.Telemetry.OTLPHeaders["x-api-key"] != "secret-token" {
		t.Errorf("expected x-api-key header, got %v", cfg.Telemetry.OTLPHeaders)
	}
}

func TestParseCLIOverridesErrors(t *testing.T) {
	if _, _, err := parseCLIOverrides([]string{"--config"}); err == nil {
		t.Fatalf("expected error for missing --config value")
	}
	if _, _, err := parseCLIOverrides([]string{"--set"}); err == nil {
		t.Fatalf("expected error for missing --set value")
	}
	if _, _, err := parseCLIOverrides([]string{"--set", "invalid"}); err == nil {
		t.Fatalf("expected error for invalid --set value")
	}
}

func TestParseValue(t *testing.T) {
	if v, ok := parseValue("12").(int); !ok || v != 12 {
		t.Errorf("expected int 12, got %#v", parseValue("12"))
	}
	if v, ok := parseValue("true").(bool); !ok || !v {
		t.Errorf("expected bool true")
	}
	if v, ok := parseValue("hello world").(string); !ok || v != "hello world" {
		t.Errorf("expected string, got %#v", parseValue("hello world"))
	}
	if v := parseValue(""); v != "" {
		t.Errorf("expected empty string, got %#v", v)
	}
}
