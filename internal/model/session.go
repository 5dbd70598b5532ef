// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTitle is the title of a session that no user message has named yet.
	DefaultTitle = "New Chat"

	// TitleMaxRunes is the number of characters kept before the ellipsis.
	TitleMaxRunes = 30

	// TitleEllipsis marks a truncated title.
	TitleEllipsis = "…"
)

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is one conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an empty session with a fresh, creation-time-ordered id.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        NewSessionID(),
		Title:     DefaultTitle,
		Messages:  make([]Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewSessionID returns a UUIDv7 string. UUIDv7 embeds a millisecond
// timestamp, so ids sort in creation order.
func NewSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// DeriveTitle computes a session title from the first user message.
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) > TitleMaxRunes {
		return string(runes[:TitleMaxRunes]) + TitleEllipsis
	}
	return content
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message to the log. The first stored message names the
// session when it comes from the user. Transient messages are skipped on
// both sides of that check.
func (s *Session) Append(msg Message) {
	if msg.IsUser && !msg.Transient && s.storedCount() == 0 {
		s.Title = DeriveTitle(msg.Content)
	}
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
}

func (s *Session) storedCount() int {
	n := 0
	for _, m := range s.Messages {
		if !m.Transient {
			n++
		}
	}
	return n
}

// LastMessage returns the most recent message and whether one exists.
func (s *Session) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// MessageCount returns the number of messages.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// IsEmpty returns true if there are no messages.
func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// Clone returns a deep copy that is safe to hand to other goroutines.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		m.Sources = cloneSources(m.Sources)
		c.Messages[i] = m
	}
	return &c
}

// Persistable returns a deep copy without transient messages.
func (s *Session) Persistable() *Session {
	c := s.Clone()
	kept := c.Messages[:0]
	for _, m := range c.Messages {
		if !m.Transient {
			kept = append(kept, m)
		}
	}
	c.Messages = kept
	return c
}
