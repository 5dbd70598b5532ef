// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import (
	"github.com/jeranaias/ragdesk/internal/model"
)

// =============================================================================
// ATTACHMENT EVENTS
// =============================================================================

// AttachmentsChanged is published after every staging mutation.
type AttachmentsChanged struct {
	Items []model.StagedAttachment
}

func (AttachmentsChanged) EventName() string { return "attachments.changed" }

// =============================================================================
// SESSION EVENTS
// =============================================================================

// SessionReset signals that a fresh, empty session became active.
type SessionReset struct {
	Session *model.Session
}

func (SessionReset) EventName() string { return "session.reset" }

// SessionLoaded signals that a stored session replaced the active one.
// Its messages follow as MessageAppended events with Replay set.
type SessionLoaded struct {
	Session *model.Session
}

func (SessionLoaded) EventName() string { return "session.loaded" }

// MessageAppended is published for every message entering the chat view.
type MessageAppended struct {
	SessionID string
	Message   model.Message
	// Replay is true while a loaded session is being replayed.
	Replay bool
	// Persisted is true when the message was written through to history.
	Persisted bool
}

func (MessageAppended) EventName() string { return "session.message" }

// HistoryChanged asks the history browser to re-query persistence.
type HistoryChanged struct {
	SessionID string
}

func (HistoryChanged) EventName() string { return "history.changed" }

// HistoryEntry is one row of the history sidebar.
type HistoryEntry struct {
	ID       string
	Title    string
	Selected bool
}

// HistoryListed carries a freshly rendered history sidebar.
type HistoryListed struct {
	Filter  string
	Entries []HistoryEntry
	// Placeholder is set when Entries is empty.
	Placeholder string
}

func (HistoryListed) EventName() string { return "history.listed" }

// =============================================================================
// REQUEST LIFECYCLE EVENTS
// =============================================================================

// ControlsChanged enables or disables the input, send and microphone
// controls. Focus asks the front end to return focus to the text input.
type ControlsChanged struct {
	Enabled bool
	Focus   bool
}

func (ControlsChanged) EventName() string { return "controls.changed" }

// StateChanged reports a lifecycle state transition.
type StateChanged struct {
	From string
	To   string
}

func (StateChanged) EventName() string { return "lifecycle.state" }

// RevealFrame carries one incremental render of an answer.
type RevealFrame struct {
	Step     int
	Raw      string
	Rendered string
}

func (RevealFrame) EventName() string { return "reveal.frame" }

// SourcesShown attaches citation chips to the answer just revealed.
type SourcesShown struct {
	Sources []model.Source
}

func (SourcesShown) EventName() string { return "reveal.sources" }

// =============================================================================
// DOCUMENT EVENTS
// =============================================================================

// DocumentsChanged is the push notification that the document set changed
// outside the chat core.
type DocumentsChanged struct {
	Reason string
	Paths  []string
}

func (DocumentsChanged) EventName() string { return "documents.changed" }

// DocumentsListed carries the refreshed document list.
type DocumentsListed struct {
	Documents []model.Document
}

func (DocumentsListed) EventName() string { return "documents.listed" }

// =============================================================================
// NOTICES
// =============================================================================

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// Notice is a transient, user-visible message.
type Notice struct {
	Level Level
	Text  string
}

func (Notice) EventName() string { return "notice" }

// Info builds an informational notice.
func Info(text string) Notice { return Notice{Level: LevelInfo, Text: text} }

// Success builds a success notice.
func Success(text string) Notice { return Notice{Level: LevelSuccess, Text: text} }

// Error builds an error notice.
func Error(text string) Notice { return Notice{Level: LevelError, Text: text} }
