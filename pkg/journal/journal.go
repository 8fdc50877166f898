// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal records every action call a toolkit dispatches.
package journal

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Entry is one dispatched call.
type Entry struct {
	RequestID string          `json:"request_id"`
	Action    string          `json:"action"`
	ActionID  string          `json:"action_id,omitempty"`
	AgentID   string          `json:"agent_id,omitempty"`
	// Kind is the failure kind, empty on success.
	Kind       string          `json:"kind,omitempty"`
	Message    string          `json:"message,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Duration is how long the call took.
func (e Entry) Duration() time.Duration {
	if e.StartedAt.IsZero() || e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store persists journal entries.
type Store interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

// Filter limits journal queries.
type Filter struct {
	Action  string
	AgentID string
	Kind    string
	// FailuresOnly keeps entries with a non-empty Kind.
	FailuresOnly bool
	Limit        int
}

func (f Filter) match(e Entry) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.AgentID != "" && e.AgentID != f.AgentID {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.FailuresOnly && e.Kind == "" {
		return false
	}
	return true
}

// MemoryStore keeps entries in memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryStore returns an in-memory journal.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends an entry.
func (s *MemoryStore) Record(_ context.Context, entry Entry) error {
	entry.StartedAt = normalizeTime(entry.StartedAt)
	entry.FinishedAt = normalizeTime(entry.FinishedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// List returns filtered entries in recording order.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !filter.match(e) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// normalizeTime ensures timestamps are in UTC.
func normalizeTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
