// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/ui/styles"
)

// =============================================================================
// TOAST TESTS
// =============================================================================

func TestToastManager_NewestFirstAndCapped(t *testing.T) {
	m := NewToastManager()
	now := time.Now()
	for _, text := range []string{"a", "b", "c", "d"} {
		m.Add(NewToast(events.Info(text), now))
	}

	toasts := m.Toasts()
	require.Len(t, toasts, 3)
	assert.Equal(t, "d", toasts[0].Message)
	assert.Equal(t, "b", toasts[2].Message)

	m.Dismiss()
	assert.Equal(t, "c", m.Toasts()[0].Message)
}

func TestToastManager_TickExpires(t *testing.T) {
	m := NewToastManager()
	now := time.Now()
	m.Add(NewToast(events.Info("info"), now))
	m.Add(NewToast(events.Error("error"), now))

	left := m.Tick(now.Add(5 * time.Second))
	require.Len(t, left, 1)
	assert.Equal(t, events.LevelError, left[0].Level)

	assert.Empty(t, m.Tick(now.Add(9*time.Second)))
}

func TestRenderToastStack(t *testing.T) {
	theme := styles.NewTheme()
	now := time.Now()
	out := RenderToastStack(theme, []Toast{
		NewToast(events.Success("saved"), now),
		NewToast(events.Error("failed"), now),
	}, 80)

	assert.Contains(t, out, "saved")
	assert.Contains(t, out, styles.StatusIndicators.Error)
	assert.Less(t, strings.Index(out, "failed"), strings.Index(out, "saved"), "newest renders last")
	assert.Empty(t, RenderToastStack(theme, nil, 80))
}

// =============================================================================
// SIDEBAR TESTS
// =============================================================================

func listing(titles ...string) events.HistoryListed {
	l := events.HistoryListed{}
	for i, title := range titles {
		l.Entries = append(l.Entries, events.HistoryEntry{ID: string(rune('a' + i)), Title: title})
	}
	return l
}

func TestSidebar_CursorFollowsActive(t *testing.T) {
	var s Sidebar
	l := listing("one", "two", "three")
	l.Entries[2].Selected = true
	s.SetListing(l)

	e, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "three", e.Title)
}

func TestSidebar_MoveClamps(t *testing.T) {
	var s Sidebar
	s.Focus(true)
	s.SetListing(listing("one", "two"))

	s.Move(5)
	e, _ := s.Current()
	assert.Equal(t, "two", e.Title)
	s.Move(-9)
	e, _ = s.Current()
	assert.Equal(t, "one", e.Title)

	s.SetListing(events.HistoryListed{Placeholder: "No chat history"})
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestSidebar_ViewFitsWidth(t *testing.T) {
	theme := styles.NewTheme()
	var s Sidebar
	s.SetListing(listing("季度收入报告和预测分析以及更多内容", "Shopping list"))

	out := s.View(theme, "", 20, 10)
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 20, line)
	}
	assert.Contains(t, out, "Shopping")
}

func TestSidebar_Placeholder(t *testing.T) {
	theme := styles.NewTheme()
	var s Sidebar
	s.SetListing(events.HistoryListed{Filter: "zzz", Placeholder: "No matching chats"})
	assert.Contains(t, s.View(theme, "zzz", 30, 6), "No matching chats")
}

// =============================================================================
// CHIP TESTS
// =============================================================================

func TestCitations(t *testing.T) {
	theme := styles.NewTheme()
	out := Citations(theme, []model.Source{
		{Name: "report.pdf"},
		{Name: "q4.pdf", Path: "/docs/q4.pdf"},
	})
	assert.Contains(t, out, "[1] report.pdf")
	assert.Contains(t, out, "[2] q4.pdf")
	assert.Empty(t, Citations(theme, nil))
}

func TestAttachmentChips(t *testing.T) {
	theme := styles.NewTheme()
	out := AttachmentChips(theme, []model.StagedAttachment{
		{Name: "memo.wav", Kind: model.KindAudio},
	})
	assert.Contains(t, out, "memo.wav")
	assert.Empty(t, AttachmentChips(theme, nil))
}
