// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func sampleEntries() []Entry {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Entry{
		{
			RequestID:  "req-1",
			Action:     "echo",
			ActionID:   "1",
			AgentID:    "42",
			Output:     json.RawMessage(`"You are agent <$42>, you said \"hi\"."`),
			StartedAt:  start,
			FinishedAt: start.Add(5 * time.Millisecond),
		},
		{
			RequestID:  "req-2",
			Action:     "echo",
			ActionID:   "2",
			AgentID:    "7",
			Kind:       "InvalidArguments",
			Message:    `missing required field "content"`,
			StartedAt:  start.Add(time.Second),
			FinishedAt: start.Add(time.Second),
		},
		{
			RequestID:  "req-3",
			Action:     "nope",
			ActionID:   "3",
			AgentID:    "42",
			Kind:       "UnknownAction",
			Message:    `action "nope" is not registered`,
			StartedAt:  start.Add(2 * time.Second),
			FinishedAt: start.Add(2 * time.Second),
		},
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	for _, e := range sampleEntries() {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"req-1", "req-2", "req-3"}},
		{"by action", Filter{Action: "echo"}, []string{"req-1", "req-2"}},
		{"by agent", Filter{AgentID: "42"}, []string{"req-1", "req-3"}},
		{"by kind", Filter{Kind: "UnknownAction"}, []string{"req-3"}},
		{"failures", Filter{FailuresOnly: true}, []string{"req-2", "req-3"}},
		{"limit", Filter{Limit: 1}, []string{"req-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(entries) != len(tt.want) {
				t.Fatalf("expected %d entries, got %d", len(tt.want), len(entries))
			}
			for i, id := range tt.want {
				if entries[i].RequestID != id {
					t.Errorf("entry %d: got %s, want %s", i, entries[i].RequestID, id)
				}
			}
		})
	}

	entries, _ := store.List(ctx, Filter{Action: "echo", Limit: 1})
	if string(entries[0].Output) != `"You are agent <$42>, you said \"hi\"."` {
		t.Errorf("unexpected output %s", entries[0].Output)
	}
	if entries[0].Duration() != 5*time.Millisecond {
		t.Errorf("unexpected duration %v", entries[0].Duration())
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	db, err := sql.Open("sqlite", "file:journal_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	exerciseStore(t, store)
}

func TestOpenSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := store.Record(ctx, Entry{RequestID: "r", Action: "echo", StartedAt: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "echo" {
		t.Fatalf("expected persisted entry, got %+v", entries)
	}
}

func TestNewSQLiteStoreNilDB(t *testing.T) {
	if _, err := NewSQLiteStore(nil); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
