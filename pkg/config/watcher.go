// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"time"
)

// Change describes one reload that altered the effective configuration.
type Change struct {
	Previous *Config
	Current  *Config
}

// ToolkitInfoChanged reports whether the toolkit name or description
// changed. Clearing the name is not a change worth publishing.
func (c Change) ToolkitInfoChanged() bool {
	prev, next := c.Previous.Toolkit, c.Current.Toolkit
	if next.Name == "" {
		return false
	}
	return prev.Name != next.Name || prev.Description != next.Description
}

// RestartRequired lists the changed sections a running toolkit only picks
// up when it is started again.
func (c Change) RestartRequired() []string {
	prev, next := c.Previous, c.Current
	var sections []string
	if prev.Endpoints != next.Endpoints {
		sections = append(sections, "endpoints")
	}
	pt, nt := prev.Toolkit, next.Toolkit
	pt.Name, pt.Description = nt.Name, nt.Description
	if pt != nt {
		sections = append(sections, "toolkit")
	}
	if prev.Journal != next.Journal {
		sections = append(sections, "journal")
	}
	if !reflect.DeepEqual(prev.Telemetry, next.Telemetry) {
		sections = append(sections, "telemetry")
	}
	if prev.Log != next.Log {
		sections = append(sections, "log")
	}
	return sections
}

// Watcher polls a config file and its profile overlay and reloads when
// either is modified. Listeners only hear about reloads that change the
// effective configuration.
type Watcher struct {
	mu          sync.RWMutex
	path        string
	profile     string
	interval    time.Duration
	lastModTime map[string]time.Time
	config      *Config
	listeners   []func(Change)
	stopOnce    sync.Once
	stopCh      chan struct{}
	doneCh      chan struct{}
	logger      *slog.Logger
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets the polling interval.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatchLogger sets the logger for the watcher.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithOnChange registers fn before polling starts, so no reload is missed.
func WithOnChange(fn func(Change)) WatcherOption {
	return func(w *Watcher) {
		w.listeners = append(w.listeners, fn)
	}
}

func newWatcher(path, profile string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:        path,
		profile:     profile,
		interval:    time.Second,
		lastModTime: make(map[string]time.Time),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.checkForChanges()
	cfg, err := LoadWithProfile(w.path, w.profile)
	if err != nil {
		return nil, err
	}
	w.config = cfg
	return w, nil
}

// WatchConfig loads configPath with the profile overlay applied and starts
// polling both files until ctx ends or Stop is called. An overlay created
// after the watch started is picked up on the next poll.
func WatchConfig(ctx context.Context, configPath, profile string, opts ...WatcherOption) (*Watcher, *Config, error) {
	w, err := newWatcher(configPath, profile, opts...)
	if err != nil {
		return nil, nil, err
	}
	go w.watch(ctx)
	return w, w.Config(), nil
}

// OnChange registers a listener for later reloads.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops polling and waits for the polling goroutine to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.checkForChanges() {
				w.reload()
			}
		}
	}
}

func (w *Watcher) paths() []string {
	if w.path == "" {
		return nil
	}
	paths := []string{w.path}
	if overlay := profileConfigPath(w.path, w.profile); overlay != "" {
		paths = append(paths, overlay)
	}
	return paths
}

func (w *Watcher) checkForChanges() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := false
	for _, path := range w.paths() {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		lastMod, exists := w.lastModTime[path]
		if !exists || info.ModTime().After(lastMod) {
			w.lastModTime[path] = info.ModTime()
			changed = true
		}
	}
	return changed
}

func (w *Watcher) reload() {
	cfg, err := LoadWithProfile(w.path, w.profile)
	if err != nil {
		w.logger.Error("failed to reload config", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	prev := w.config
	if reflect.DeepEqual(prev, cfg) {
		w.mu.Unlock()
		return
	}
	w.config = cfg
	listeners := append(([]func(Change))(nil), w.listeners...)
	w.mu.Unlock()

	w.logger.Info("config reloaded", "path", w.path, "profile", w.profile)
	change := Change{Previous: prev, Current: cfg}
	for _, fn := range listeners {
		fn(change)
	}
}
