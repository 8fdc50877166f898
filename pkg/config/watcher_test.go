// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

// writeLater rewrites path with a modification time safely after the previous one.
func writeLater(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestWatcherDetectsChanges(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	initial := `toolkit:
  name: echo
  description: first
`
	if err := os.WriteFile(configPath, []byte(initial), 0o644); err != nil {
		t.Fatalf("failed to write initial config: %v", err)
	}

	changes := make(chan Change, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, cfg, err := WatchConfig(ctx, configPath, "",
		WithWatchInterval(20*time.Millisecond),
		WithOnChange(func(c Change) {
			select {
			case changes <- c:
			default:
			}
		}),
	)
	if err != nil {
		t.Fatalf("failed to watch config: %v", err)
	}
	defer watcher.Stop()

	if cfg.Toolkit.Description != "first" {
		t.Errorf("expected description 'first', got %q", cfg.Toolkit.Description)
	}

	writeLater(t, configPath, `toolkit:
  name: echo
  description: second
`)

	select {
	case c := <-changes:
		if c.Previous.Toolkit.Description != "first" || c.Current.Toolkit.Description != "second" {
			t.Errorf("unexpected change %q -> %q", c.Previous.Toolkit.Description, c.Current.Toolkit.Description)
		}
		if !c.ToolkitInfoChanged() {
			t.Error("expected a toolkit info change")
		}
		if got := c.RestartRequired(); len(got) != 0 {
			t.Errorf("info changes need no restart, got %v", got)
		}
		if watcher.Config().Toolkit.Description != "second" {
			t.Errorf("watcher did not keep the reloaded config")
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for config change notification")
	}
}

func TestWatcherIgnoresTouchWithoutChange(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := "toolkit:\n  name: v1\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher, _, err := WatchConfig(ctx, configPath, "",
		WithWatchInterval(10*time.Millisecond),
		WithOnChange(func(Change) { calls.Add(1) }),
	)
	if err != nil {
		t.Fatalf("failed to watch config: %v", err)
	}
	defer watcher.Stop()

	writeLater(t, configPath, content)
	time.Sleep(200 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("expected no notification for identical content, got %d", calls.Load())
	}
}

func TestWatcherMultipleListeners(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("toolkit:\n  name: v1\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var count1, count2 atomic.Int32
	done := make(chan struct{}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher, _, err := WatchConfig(ctx, configPath, "",
		WithWatchInterval(20*time.Millisecond),
		WithOnChange(func(Change) { count1.Add(1); done <- struct{}{} }),
	)
	if err != nil {
		t.Fatalf("failed to watch config: %v", err)
	}
	defer watcher.Stop()
	watcher.OnChange(func(Change) { count2.Add(1); done <- struct{}{} })

	writeLater(t, configPath, "toolkit:\n  name: v2\n")

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for listeners")
		}
	}

	if count1.Load() != 1 || count2.Load() != 1 {
		t.Errorf("expected both listeners called once, got count1=%d, count2=%d", count1.Load(), count2.Load())
	}
}

func TestWatcherStops(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte(`toolkit: {}`), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	watcher, _, err := WatchConfig(context.Background(), configPath, "", WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to watch config: %v", err)
	}

	done := make(chan struct{})
	go func() {
		watcher.Stop()
		watcher.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("watcher.Stop() did not complete in time")
	}
}

func TestWatchConfigWithProfiles(t *testing.T) {
	tmpDir := t.TempDir()

	basePath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(basePath, []byte("toolkit:\n  name: base\n"), 0o644); err != nil {
		t.Fatalf("failed to write base config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Change, 1)
	watcher, cfg, err := WatchConfig(ctx, basePath, "dev",
		WithWatchInterval(20*time.Millisecond),
		WithOnChange(func(c Change) {
			select {
			case changes <- c:
			default:
			}
		}),
	)
	if err != nil {
		t.Fatalf("failed to watch config: %v", err)
	}
	defer watcher.Stop()
	if cfg.Toolkit.Name != "base" {
		t.Errorf("expected name 'base' before the overlay exists, got %q", cfg.Toolkit.Name)
	}

	// An overlay created after the watch started is applied.
	writeLater(t, filepath.Join(tmpDir, "config.dev.yaml"), "toolkit:\n  name: dev\n")
	select {
	case c := <-changes:
		if c.Current.Toolkit.Name != "dev" {
			t.Errorf("expected name 'dev', got %q", c.Current.Toolkit.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for the profile overlay")
	}
}

func TestChangeRestartRequired(t *testing.T) {
	base := Config{
		Toolkit:   ToolkitConfig{Name: "Echo", Description: "Echoes", CallTimeoutSeconds: 60},
		Endpoints: EndpointsConfig{Backend: "https://backend.test"},
		Telemetry: TelemetryConfig{Exporter: "none", OTLPHeaders: map[string]string{"a": "b"}},
	}
	tests := []struct {
		name     string
		edit     func(c *Config)
		want     []string
		wantInfo bool
	}{
		{name: "unchanged", edit: func(*Config) {}},
		{name: "renamed", edit: func(c *Config) { c.Toolkit.Name = "Echo 2" }, wantInfo: true},
		{name: "new description", edit: func(c *Config) { c.Toolkit.Description = "Repeats" }, wantInfo: true},
		{name: "name cleared", edit: func(c *Config) { c.Toolkit.Name = "" }},
		{name: "timeout", edit: func(c *Config) { c.Toolkit.CallTimeoutSeconds = 5 }, want: []string{"toolkit"}},
		{name: "endpoints", edit: func(c *Config) { c.Endpoints.Backend = "https://other.test" }, want: []string{"endpoints"}},
		{name: "telemetry headers", edit: func(c *Config) { c.Telemetry.OTLPHeaders = map[string]string{"a": "c"} }, want: []string{"telemetry"}},
		{name: "log and journal", edit: func(c *Config) { c.Log.Level = "debug"; c.Journal.Enabled = true }, want: []string{"journal", "log"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := base
			next := base
			next.Telemetry.OTLPHeaders = map[string]string{"a": "b"}
			tt.edit(&next)
			c := Change{Previous: &prev, Current: &next}
			if got := c.ToolkitInfoChanged(); got != tt.wantInfo {
				t.Errorf("ToolkitInfoChanged() = %v, want %v", got, tt.wantInfo)
			}
			if got := c.RestartRequired(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RestartRequired() = %v, want %v", got, tt.want)
			}
		})
	}
}
