// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/model"
)

// Clearer is the part of attachment staging the store resets.
type Clearer interface {
	Clear()
}

// =============================================================================
// SESSION STORE
// =============================================================================

// Store owns the active session.
type Store struct {
	mu      sync.Mutex
	current *model.Session

	// saveMu orders history writes so a later snapshot never lands
	// before an earlier one.
	saveMu sync.Mutex

	history backend.History
	staging Clearer
	bus     *events.Bus
	log     *zap.Logger
}

// NewStore creates a store with a fresh, empty active session.
// No events are published until the first mutation.
func NewStore(history backend.History, staging Clearer, bus *events.Bus, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		current: model.NewSession(),
		history: history,
		staging: staging,
		bus:     bus,
		log:     log.Named("session"),
	}
}

// =============================================================================
// STATE
// =============================================================================

// Current returns a snapshot of the active session.
func (s *Store) Current() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// ID returns the active session id.
func (s *Store) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.ID
}

// =============================================================================
// OPERATIONS
// =============================================================================

// StartNew replaces the active session with an empty one and clears staged
// attachments.
func (s *Store) StartNew(ctx context.Context) {
	fresh := model.NewSession()

	s.mu.Lock()
	s.current = fresh
	s.mu.Unlock()

	if s.staging != nil {
		s.staging.Clear()
	}
	s.log.Debug("started session", zap.String("id", fresh.ID))
	s.bus.Publish(events.SessionReset{Session: fresh.Clone()})
}

// Load makes the stored session id active and replays its messages.
//
// An unknown id is not an error: Load returns (false, nil) and leaves the
// active session untouched. Replayed messages are neither persisted again
// nor used to derive a title.
func (s *Store) Load(ctx context.Context, id string) (bool, error) {
	loaded, err := s.history.LoadSession(ctx, id)
	if errors.Is(err, backend.ErrSessionNotFound) {
		s.log.Debug("session not found", zap.String("id", id))
		return false, nil
	}
	if err != nil {
		s.log.Error("load session failed", zap.String("id", id), zap.Error(err))
		return false, err
	}
	if loaded.Messages == nil {
		loaded.Messages = []model.Message{}
	}
	if loaded.Title == "" {
		loaded.Title = model.DefaultTitle
	}

	s.mu.Lock()
	s.current = loaded
	snapshot := loaded.Clone()
	s.mu.Unlock()

	s.bus.Publish(events.SessionLoaded{Session: snapshot})
	for _, msg := range snapshot.Messages {
		s.bus.Publish(events.MessageAppended{
			SessionID: snapshot.ID,
			Message:   msg,
			Replay:    true,
			Persisted: true,
		})
	}
	return true, nil
}

// AppendMessage adds a message to the active session.
//
// The first message names the session when it comes from the user. With
// persist set the whole session is written through to history before
// AppendMessage returns; a write failure is logged and swallowed. Without
// persist the message is transient and never reaches history.
func (s *Store) AppendMessage(ctx context.Context, isUser bool, content string, sources []model.Source, persist bool) model.Message {
	var msg model.Message
	if isUser {
		msg = model.NewUserMessage(content)
	} else {
		msg = model.NewAssistantMessage(content, sources)
	}
	msg.Transient = !persist

	if !persist {
		id := s.append(msg)
		s.bus.Publish(events.MessageAppended{SessionID: id, Message: msg})
		return msg
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	s.current.Append(msg)
	snapshot := s.current.Persistable()
	s.mu.Unlock()

	saved := s.save(ctx, snapshot)
	s.bus.Publish(events.MessageAppended{SessionID: snapshot.ID, Message: msg, Persisted: saved})
	if saved {
		s.bus.Publish(events.HistoryChanged{SessionID: snapshot.ID})
	}
	return msg
}

func (s *Store) append(msg model.Message) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Append(msg)
	return s.current.ID
}

func (s *Store) save(ctx context.Context, snapshot *model.Session) bool {
	start := time.Now()
	if err := s.history.SaveSession(ctx, snapshot); err != nil {
		s.log.Error("persist session failed",
			zap.String("id", snapshot.ID),
			zap.Int("messages", snapshot.MessageCount()),
			zap.Error(err))
		return false
	}
	s.log.Debug("persisted session",
		zap.String("id", snapshot.ID),
		zap.Int("messages", snapshot.MessageCount()),
		zap.Duration("elapsed", time.Since(start)))
	return true
}
