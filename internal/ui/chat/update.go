// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/lifecycle"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/ui/components"
)

const busyNotice = "Wait for the current answer to finish"

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		if m.theme.SidebarWidth() == 0 && m.sidebar.Focused() {
			m.setSidebarFocus(false)
		}
		m.layout()
		m.refreshViewport()
		return m, nil

	case eventsMsg:
		var cmds []tea.Cmd
		for _, ev := range msg.events {
			if cmd := m.applyEvent(ev); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		m.layout()
		m.refreshViewport()
		cmds = append(cmds, m.bridge.Wait())
		return m, tea.Batch(cmds...)

	case opDoneMsg:
		return m, m.handleOpDone(msg)

	case components.ToastTickMsg:
		before := len(m.toasts.Toasts())
		if len(m.toasts.Tick(msg.Time)) != before {
			m.layout()
		}
		return m, components.ToastTickCmd()

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// =============================================================================
// EVENTS
// =============================================================================

// applyEvent folds one core event into the view state.
func (m *Model) applyEvent(ev events.Event) tea.Cmd {
	switch e := ev.(type) {
	case events.SessionReset:
		m.entries = nil
		m.revealing = ""
		m.sources = nil

	case events.SessionLoaded:
		m.entries = nil
		m.revealing = ""
		m.sources = nil

	case events.MessageAppended:
		if !e.Message.IsUser {
			m.revealing = ""
			if len(e.Message.Sources) > 0 {
				m.sources = e.Message.Sources
			}
		}
		m.entries = append(m.entries, m.newEntry(e.Message))

	case events.RevealFrame:
		m.revealing = e.Rendered

	case events.SourcesShown:
		if len(e.Sources) > 0 {
			m.sources = e.Sources
		}

	case events.ControlsChanged:
		m.enabled = e.Enabled
		if !e.Enabled {
			m.input.Blur()
		} else if e.Focus && !m.sidebar.Focused() {
			return m.input.Focus()
		}

	case events.StateChanged:
		wasIdle := !m.busy()
		m.state = e.To
		if wasIdle && m.busy() {
			return m.spinner.Tick
		}

	case events.HistoryListed:
		m.sidebar.SetListing(e)

	case events.AttachmentsChanged:
		m.attachments = e.Items

	case events.DocumentsListed:
		m.documents = e.Documents
		if m.showDocs {
			m.showDocs = false
			m.entries = append(m.entries, localEntry(documentList(e.Documents)))
		}

	case events.Notice:
		m.toasts.Add(components.NewToast(e, time.Now()))
	}
	return nil
}

func (m *Model) newEntry(msg model.Message) entry {
	e := entry{msg: msg, rendered: msg.Content}
	if !msg.IsUser && !msg.Transient {
		e.rendered = m.app.Renderer.Render(msg.Content)
	}
	return e
}

func localEntry(text string) entry {
	return entry{msg: model.Message{Content: text, Transient: true}, rendered: text, local: true}
}

// handleOpDone surfaces errors the core did not already report.
func (m *Model) handleOpDone(msg opDoneMsg) tea.Cmd {
	if msg.err == nil {
		return nil
	}
	switch {
	case errors.Is(msg.err, lifecycle.ErrBusy):
		m.toasts.Add(components.NewToast(events.Info(busyNotice), time.Now()))
	case errors.Is(msg.err, lifecycle.ErrNothingToSend), errors.Is(msg.err, backend.ErrCanceled):
		return nil
	case msg.op == opAttach || msg.op == opCommand || msg.op == opExport:
		m.toasts.Add(components.NewToast(events.Error(msg.err.Error()), time.Now()))
	default:
		m.app.Log.Debug("operation failed", zap.String("op", msg.op), zap.Error(msg.err))
		return nil
	}
	m.layout()
	return nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		m.app.Lifecycle.Cancel()
		m.bridge.Close()
		return m, tea.Quit
	}

	if m.confirmDelete != nil {
		target := *m.confirmDelete
		m.confirmDelete = nil
		m.layout()
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.deleteChat(target.ID)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		switch {
		case m.busy():
			m.app.Lifecycle.Cancel()
		case m.sidebar.Focused():
			return m, m.setSidebarFocus(false)
		default:
			m.toasts.Dismiss()
			m.layout()
		}
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.theme.SidebarWidth() == 0 {
			return m, nil
		}
		return m, m.setSidebarFocus(!m.sidebar.Focused())

	case key.Matches(msg, m.keys.NewChat):
		return m, m.newChat()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	if m.sidebar.Focused() {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Submit) {
		if !m.enabled {
			return m, nil
		}
		return m.submit()
	}

	if !m.enabled {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.Move(-1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.sidebar.Move(1)
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		if e, ok := m.sidebar.Current(); ok {
			return m, m.selectChat(e.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if e, ok := m.sidebar.Current(); ok {
			m.confirmDelete = &e
			m.layout()
		}
		return m, nil
	}

	prev := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if v := m.filter.Value(); v != prev {
		return m, tea.Batch(cmd, m.refreshHistory(v))
	}
	return m, cmd
}

func (m *Model) setSidebarFocus(on bool) tea.Cmd {
	m.sidebar.Focus(on)
	if on {
		m.input.Blur()
		return m.filter.Focus()
	}
	m.filter.Blur()
	if m.enabled {
		return m.input.Focus()
	}
	return nil
}

// =============================================================================
// LAYOUT
// =============================================================================

// layout sizes the viewport and inputs for the current window and overlays.
func (m *Model) layout() {
	if m.width == 0 {
		return
	}
	sw := m.theme.SidebarWidth()
	chatWidth := m.width - sw
	if chatWidth < 10 {
		chatWidth = 10
	}

	used := 1 + 2 + 1 // header, input with border, status bar
	if len(m.attachments) > 0 {
		used++
	}
	if m.confirmDelete != nil {
		used++
	}
	if stack := components.RenderToastStack(m.theme, m.toasts.Toasts(), chatWidth); stack != "" {
		used += lipgloss.Height(stack)
	}
	h := m.height - used
	if h < 3 {
		h = 3
	}

	widthChanged := m.viewport.Width != chatWidth
	m.viewport.Width = chatWidth
	m.viewport.Height = h
	m.input.Width = chatWidth - 6
	if sw > 6 {
		m.filter.Width = sw - 6
	}
	if widthChanged {
		m.refreshViewport()
	}
}

// refreshViewport re-renders the conversation and keeps the view pinned to
// the bottom when it already was.
func (m *Model) refreshViewport() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation())
	if atBottom {
		m.viewport.GotoBottom()
	}
}
