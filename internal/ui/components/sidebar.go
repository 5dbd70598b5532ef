// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/ui/styles"
	"github.com/jeranaias/ragdesk/internal/util"
)

// =============================================================================
// HISTORY SIDEBAR
// =============================================================================

// Sidebar is the chat history list. The entries come from
// events.HistoryListed; the cursor is local to the view.
type Sidebar struct {
	listing events.HistoryListed
	cursor  int
	focused bool
}

// SetListing replaces the entries and keeps the cursor in range. When the
// sidebar is not focused the cursor follows the active session.
func (s *Sidebar) SetListing(l events.HistoryListed) {
	s.listing = l
	if !s.focused {
		for i, e := range l.Entries {
			if e.Selected {
				s.cursor = i
			}
		}
	}
	s.clamp()
}

// Listing returns the current entries.
func (s *Sidebar) Listing() events.HistoryListed { return s.listing }

// Focus toggles keyboard focus.
func (s *Sidebar) Focus(on bool) { s.focused = on }

// Focused reports keyboard focus.
func (s *Sidebar) Focused() bool { return s.focused }

// Move shifts the cursor by delta.
func (s *Sidebar) Move(delta int) {
	s.cursor += delta
	s.clamp()
}

// Current returns the entry under the cursor.
func (s *Sidebar) Current() (events.HistoryEntry, bool) {
	if s.cursor < 0 || s.cursor >= len(s.listing.Entries) {
		return events.HistoryEntry{}, false
	}
	return s.listing.Entries[s.cursor], true
}

func (s *Sidebar) clamp() {
	if s.cursor >= len(s.listing.Entries) {
		s.cursor = len(s.listing.Entries) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// View renders the sidebar into width columns and at most height rows.
// Titles are cut by display width so wide characters never overflow.
func (s *Sidebar) View(theme *styles.Theme, filter string, width, height int) string {
	if width <= 0 {
		return ""
	}
	inner := width - 2
	if inner < 4 {
		inner = 4
	}

	var b strings.Builder
	b.WriteString(theme.SidebarTitle.Render(util.TruncateWidth("Chats", inner)))
	b.WriteByte('\n')
	b.WriteString(util.PadRight(util.TruncateWidth(filter, inner), inner))
	b.WriteByte('\n')

	rows := height - 2
	if len(s.listing.Entries) == 0 {
		b.WriteString(theme.SidebarPlaceholder.Render(util.TruncateWidth(s.listing.Placeholder, inner)))
	} else {
		start := 0
		if rows > 0 && s.cursor >= rows {
			start = s.cursor - rows + 1
		}
		for i := start; i < len(s.listing.Entries) && (rows <= 0 || i < start+rows); i++ {
			e := s.listing.Entries[i]
			marker := "  "
			if s.focused && i == s.cursor {
				marker = theme.SidebarCursor.Render("> ")
			}
			title := util.PadRight(util.TruncateWidth(e.Title, inner-2), inner-2)
			style := theme.SidebarItem
			if e.Selected {
				style = theme.SidebarSelected
			}
			b.WriteString(marker + style.Render(title))
			if i < len(s.listing.Entries)-1 {
				b.WriteByte('\n')
			}
		}
	}

	frame := theme.Sidebar
	if s.focused {
		frame = theme.SidebarFocused
	}
	return frame.Width(width - frame.GetHorizontalBorderSize()).Height(height).Render(b.String())
}
