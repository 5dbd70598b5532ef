// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/model"
)

// SchemaVersion tracks the database schema version for migrations.
const SchemaVersion = 1

// Schema creates the session tables. Storage order is insertion order of
// the sessions row, which UUIDv7 ids and created_at agree with.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS sessions (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    created_at INTEGER NOT NULL, -- Unix nanoseconds
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    session_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    is_user INTEGER NOT NULL,
    content TEXT NOT NULL,
    sources TEXT,               -- JSON array of {name, path}
    timestamp INTEGER NOT NULL,
    PRIMARY KEY (session_id, position),
    FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
`

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore persists sessions in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ backend.History = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path.
// ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, wrap("open", "", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrap("open", "", err)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, wrap("open", "", fmt.Errorf("%s: %w", pragma, err))
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, wrap("open", "", fmt.Errorf("create schema: %w", err))
	}
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', ?)`,
		fmt.Sprint(SchemaVersion),
	); err != nil {
		db.Close()
		return nil, wrap("open", "", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSession upserts the session row and replaces its messages.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *model.Session) error {
	if err := validateID(sess.ID); err != nil {
		return wrap("save", sess.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("save", sess.ID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		sess.ID, sess.Title, sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano(),
	); err != nil {
		return wrap("save", sess.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sess.ID); err != nil {
		return wrap("save", sess.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (session_id, position, is_user, content, sources, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return wrap("save", sess.ID, err)
	}
	defer stmt.Close()

	for i, msg := range sess.Messages {
		var sources sql.NullString
		if len(msg.Sources) > 0 {
			data, err := json.Marshal(msg.Sources)
			if err != nil {
				return wrap("save", sess.ID, err)
			}
			sources = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, sess.ID, i, msg.IsUser, msg.Content, sources, msg.Timestamp.UnixNano()); err != nil {
			return wrap("save", sess.ID, err)
		}
	}

	return wrap("save", sess.ID, tx.Commit())
}

// LoadSession reads a session and its messages.
func (s *SQLiteStore) LoadSession(ctx context.Context, id string) (*model.Session, error) {
	var (
		sess             model.Session
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("load", id)
	}
	if err != nil {
		return nil, wrap("load", id, err)
	}
	sess.CreatedAt = time.Unix(0, created)
	sess.UpdatedAt = time.Unix(0, updated)

	msgs, err := s.messages(ctx, id)
	if err != nil {
		return nil, wrap("load", id, err)
	}
	sess.Messages = msgs
	return &sess, nil
}

// ListSessions returns all sessions in insertion order, oldest first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM sessions ORDER BY seq`)
	if err != nil {
		return nil, wrap("list", "", err)
	}

	var sessions []model.Session
	for rows.Next() {
		var (
			sess             model.Session
			created, updated int64
		)
		if err := rows.Scan(&sess.ID, &sess.Title, &created, &updated); err != nil {
			rows.Close()
			return nil, wrap("list", "", err)
		}
		sess.CreatedAt = time.Unix(0, created)
		sess.UpdatedAt = time.Unix(0, updated)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, wrap("list", "", err)
	}
	rows.Close()

	for i := range sessions {
		msgs, err := s.messages(ctx, sessions[i].ID)
		if err != nil {
			return nil, wrap("list", sessions[i].ID, err)
		}
		sessions[i].Messages = msgs
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return sessions, nil
}

// DeleteSession removes a session; its messages cascade.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return wrap("delete", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("delete", id, err)
	}
	if n == 0 {
		return notFound("delete", id)
	}
	return nil
}

func (s *SQLiteStore) messages(ctx context.Context, id string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT is_user, content, sources, timestamp
		FROM messages WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var (
			msg     model.Message
			sources sql.NullString
			ts      int64
		)
		if err := rows.Scan(&msg.IsUser, &msg.Content, &sources, &ts); err != nil {
			return nil, err
		}
		if sources.Valid && sources.String != "" {
			if err := json.Unmarshal([]byte(sources.String), &msg.Sources); err != nil {
				return nil, fmt.Errorf("decode sources: %w", err)
			}
		}
		msg.Timestamp = time.Unix(0, ts)
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
