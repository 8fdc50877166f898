// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists entries in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the journal database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	store, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore creates a SQLite-backed journal and ensures the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record stores a single entry.
func (s *SQLiteStore) Record(ctx context.Context, entry Entry) error {
	output := string(entry.Output)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action_calls (
			request_id, action, action_id, agent_id, kind, message, output_json, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.RequestID,
		entry.Action,
		entry.ActionID,
		entry.AgentID,
		entry.Kind,
		entry.Message,
		output,
		normalizeTime(entry.StartedAt),
		normalizeTime(entry.FinishedAt),
	)
	return err
}

// List returns entries matching the filter, oldest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
		SELECT request_id, action, action_id, agent_id, kind, message, output_json, started_at, finished_at
		FROM action_calls
	`
	var args []any
	where := ""
	addFilter := func(clause string, value ...any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value...)
	}
	if filter.Action != "" {
		addFilter("action = ?", filter.Action)
	}
	if filter.AgentID != "" {
		addFilter("agent_id = ?", filter.AgentID)
	}
	if filter.Kind != "" {
		addFilter("kind = ?", filter.Kind)
	}
	if filter.FailuresOnly {
		addFilter("kind <> ''")
	}
	query += where + " ORDER BY started_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry    Entry
			output   sql.NullString
			started  sql.NullTime
			finished sql.NullTime
		)
		if err := rows.Scan(
			&entry.RequestID,
			&entry.Action,
			&entry.ActionID,
			&entry.AgentID,
			&entry.Kind,
			&entry.Message,
			&output,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		if output.Valid && output.String != "" {
			entry.Output = []byte(output.String)
		}
		if started.Valid {
			entry.StartedAt = started.Time
		}
		if finished.Valid {
			entry.FinishedAt = finished.Time
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS action_calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			action TEXT NOT NULL,
			action_id TEXT NOT NULL DEFAULT '',
			agent_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			output_json TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_action_calls_action ON action_calls(action);
		CREATE INDEX IF NOT EXISTS idx_action_calls_agent ON action_calls(agent_id);
		CREATE INDEX IF NOT EXISTS idx_action_calls_kind ON action_calls(kind);
	`)
	return err
}
