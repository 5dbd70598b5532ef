// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sync"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/model"
)

// MemoryStore keeps sessions in process memory. It backs the "memory"
// driver and tests.
type MemoryStore struct {
	mu    sync.Mutex
	order []string
	byID  map[string]*model.Session

	// SaveErr, when set, fails every SaveSession.
	SaveErr error
	saves   int
}

var _ backend.History = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*model.Session)}
}

// SaveSession stores a deep copy of sess.
func (m *MemoryStore) SaveSession(ctx context.Context, sess *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.SaveErr != nil {
		return wrap("save", sess.ID, m.SaveErr)
	}
	if _, ok := m.byID[sess.ID]; !ok {
		m.order = append(m.order, sess.ID)
	}
	m.byID[sess.ID] = sess.Clone()
	return nil
}

// LoadSession returns a copy of the stored session.
func (m *MemoryStore) LoadSession(ctx context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.byID[id]
	if !ok {
		return nil, notFound("load", id)
	}
	return sess.Clone(), nil
}

// ListSessions returns sessions in first-save order.
func (m *MemoryStore) ListSessions(ctx context.Context) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Session, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.byID[id].Clone())
	}
	return out, nil
}

// DeleteSession removes a session.
func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return notFound("delete", id)
	}
	delete(m.byID, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Saves returns the number of SaveSession calls.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
