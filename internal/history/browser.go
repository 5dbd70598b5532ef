// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/model"
)

// Placeholders shown when the list is empty.
const (
	PlaceholderNoMatches = "No matching chats"
	PlaceholderEmpty     = "No chat history"
)

// ActiveSession is the part of the session store the browser drives.
type ActiveSession interface {
	ID() string
	Load(ctx context.Context, id string) (bool, error)
	StartNew(ctx context.Context)
}

// Opener opens files externally.
type Opener interface {
	OpenExternally(ctx context.Context, absPath string) (backend.OpenResult, error)
}

// =============================================================================
// BROWSER
// =============================================================================

// Browser presents stored sessions.
type Browser struct {
	mu     sync.Mutex
	filter string

	active  ActiveSession
	history backend.History
	opener  Opener
	bus     *events.Bus
	log     *zap.Logger
}

// NewBrowser creates a browser.
func NewBrowser(active ActiveSession, history backend.History, opener Opener, bus *events.Bus, log *zap.Logger) *Browser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Browser{
		active:  active,
		history: history,
		opener:  opener,
		bus:     bus,
		log:     log.Named("history"),
	}
}

// Watch refreshes the list with the current filter whenever a session is
// written. It returns a function that stops watching.
func (b *Browser) Watch(ctx context.Context) (stop func()) {
	return events.On(b.bus, func(events.HistoryChanged) {
		if _, err := b.Refresh(ctx, b.Filter()); err != nil {
			b.log.Warn("refresh after write failed", zap.Error(err))
		}
	})
}

// Filter returns the filter of the last refresh.
func (b *Browser) Filter() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter
}

// Refresh re-queries storage and publishes the filtered list.
func (b *Browser) Refresh(ctx context.Context, filter string) (events.HistoryListed, error) {
	b.mu.Lock()
	b.filter = filter
	b.mu.Unlock()

	sessions, err := b.history.ListSessions(ctx)
	if err != nil {
		b.log.Error("list sessions failed", zap.Error(err))
		return events.HistoryListed{}, fmt.Errorf("list sessions: %w", err)
	}

	view := Build(sessions, filter, b.active.ID())
	b.bus.Publish(view)
	return view, nil
}

// Select makes the stored session id active. An id that no longer exists
// leaves the active session unchanged.
func (b *Browser) Select(ctx context.Context, id string) error {
	found, err := b.active.Load(ctx, id)
	if err != nil {
		b.bus.Publish(events.Error("Could not open chat"))
		return err
	}
	if !found {
		b.log.Debug("selected session no longer exists", zap.String("id", id))
	}
	_, err = b.Refresh(ctx, b.Filter())
	return err
}

// Delete removes a stored session. Confirmation is the caller's concern.
// Deleting the active session starts a new one.
func (b *Browser) Delete(ctx context.Context, id string) error {
	wasActive := id == b.active.ID()

	if err := b.history.DeleteSession(ctx, id); err != nil && !errors.Is(err, backend.ErrSessionNotFound) {
		b.log.Error("delete session failed", zap.String("id", id), zap.Error(err))
		b.bus.Publish(events.Error("Could not delete chat"))
		return err
	}

	if wasActive {
		b.active.StartNew(ctx)
	}
	_, err := b.Refresh(ctx, b.Filter())
	return err
}

// OpenSource opens a citation externally. Sources without an absolute path
// never reach the opener.
func (b *Browser) OpenSource(ctx context.Context, src model.Source) error {
	if !src.Openable() {
		b.bus.Publish(events.Info(fmt.Sprintf("%s has no file to open", src.Label())))
		return backend.ErrNotOpenable
	}

	res, err := b.opener.OpenExternally(ctx, src.Path)
	if err == nil && !res.OK() {
		err = errors.New(res.Message)
	}
	if err != nil {
		b.log.Warn("open source failed", zap.String("path", src.Path), zap.Error(err))
		b.bus.Publish(events.Error(fmt.Sprintf("Could not open %s: %v", src.Label(), err)))
		return err
	}
	return nil
}

// =============================================================================
// VIEW
// =============================================================================

// Build filters sessions by title and orders them most recent first.
// Surrounding spaces in the filter do not take part in matching, but any
// typed filter, even blank, selects the "no matches" placeholder.
func Build(sessions []model.Session, filter, activeID string) events.HistoryListed {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(filter))

	view := events.HistoryListed{Filter: filter, Entries: []events.HistoryEntry{}}
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		title := s.Title
		if title == "" {
			title = model.DefaultTitle
		}
		if needle != "" && !strings.Contains(fold.String(title), needle) {
			continue
		}
		view.Entries = append(view.Entries, events.HistoryEntry{
			ID:       s.ID,
			Title:    title,
			Selected: s.ID == activeID,
		})
	}

	if len(view.Entries) == 0 {
		if filter != "" {
			view.Placeholder = PlaceholderNoMatches
		} else {
			view.Placeholder = PlaceholderEmpty
		}
	}
	return view
}
