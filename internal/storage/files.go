// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore persists one JSON document per session.
type FileStore struct {
	mu sync.Mutex

	// BaseDir holds <id>.json files.
	// Default: ~/.ragdesk/sessions/
	BaseDir string

	// MaxSessions limits stored sessions (0 = unlimited). The least
	// recently updated sessions are dropped first.
	MaxSessions int
}

var _ backend.History = (*FileStore)(nil)

// NewFileStore creates a store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, wrap("open", "", err)
	}
	return &FileStore{BaseDir: baseDir}, nil
}

// SaveSession writes the full session atomically.
func (s *FileStore) SaveSession(ctx context.Context, sess *model.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID(sess.ID); err != nil {
		return wrap("save", sess.ID, err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return wrap("save", sess.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := util.AtomicWriteFile(s.filePath(sess.ID), data, 0o600); err != nil {
		return wrap("save", sess.ID, err)
	}
	if s.MaxSessions > 0 {
		s.enforceLimitLocked(sess.ID)
	}
	return nil
}

// LoadSession reads a session by id.
func (s *FileStore) LoadSession(ctx context.Context, id string) (*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, notFound("load", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(id)
}

// ListSessions returns every readable session, oldest first.
// Corrupted files are skipped.
func (s *FileStore) ListSessions(ctx context.Context) ([]model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

// DeleteSession removes a session file.
func (s *FileStore) DeleteSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return notFound("delete", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound("delete", id)
		}
		return wrap("delete", id, err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *FileStore) loadLocked(id string) (*model.Session, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound("load", id)
		}
		return nil, wrap("load", id, err)
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, wrap("load", id, err)
	}
	if sess.ID == "" {
		sess.ID = id
	}
	if sess.Messages == nil {
		sess.Messages = []model.Message{}
	}
	return &sess, nil
}

func (s *FileStore) listLocked() ([]model.Session, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.Session{}, nil
		}
		return nil, wrap("list", "", err)
	}

	sessions := make([]model.Session, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		sess, err := s.loadLocked(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		sessions = append(sessions, *sess)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return sessions, nil
}

// enforceLimitLocked drops the least recently updated sessions, never the
// one just written.
func (s *FileStore) enforceLimitLocked(keep string) {
	sessions, err := s.listLocked()
	if err != nil || len(sessions) <= s.MaxSessions {
		return
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.Before(sessions[j].UpdatedAt)
	})

	excess := len(sessions) - s.MaxSessions
	for _, sess := range sessions {
		if excess == 0 {
			break
		}
		if sess.ID == keep {
			continue
		}
		if err := os.Remove(s.filePath(sess.ID)); err == nil {
			excess--
		}
	}
}

func (s *FileStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}
