// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/ragdesk/internal/util"
)

// =============================================================================
// SOURCE TYPE
// =============================================================================

// Source is a citation returned alongside an answer.
// Path is empty for display-only sources.
type Source struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

// SourceFromString normalizes the legacy bare-string source shape.
// The display name is the base name; the path is kept only when absolute.
func SourceFromString(s string) Source {
	s = strings.TrimSpace(s)
	src := Source{Name: filepath.Base(s)}
	if s == "" {
		src.Name = ""
	}
	if filepath.IsAbs(s) {
		src.Path = s
	}
	return src
}

// Openable reports whether the source can be opened externally.
func (s Source) Openable() bool {
	return s.Path != "" && filepath.IsAbs(s.Path)
}

// Label returns the name shown on a citation chip.
func (s Source) Label() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Path != "" {
		return filepath.Base(s.Path)
	}
	return "source"
}

// UnmarshalJSON accepts either a bare string or a {name, path} object.
// Objects are passed through unchanged.
func (s *Source) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = SourceFromString(raw)
		return nil
	}

	type plain Source
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode source: %w", err)
	}
	*s = Source(p)
	return nil
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a session log.
// Content is plain text for user messages and markdown for assistant messages.
type Message struct {
	IsUser    bool      `json:"is_user"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Transient messages are shown but never written to history.
	Transient bool `json:"-"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{IsUser: true, Content: content, Timestamp: time.Now()}
}

// NewAssistantMessage creates a new assistant message with its citations.
func NewAssistantMessage(content string, sources []Source) Message {
	return Message{Content: content, Sources: cloneSources(sources), Timestamp: time.Now()}
}

// Role returns the display name for the message sender.
func (m Message) Role() string {
	if m.IsUser {
		return "You"
	}
	return "Assistant"
}

// Preview returns the content cut to maxLen runes on one line.
func (m Message) Preview(maxLen int) string {
	return util.TruncateRunes(strings.Join(strings.Fields(m.Content), " "), maxLen)
}

func cloneSources(in []Source) []Source {
	if len(in) == 0 {
		return nil
	}
	out := make([]Source, len(in))
	copy(out, in)
	return out
}
