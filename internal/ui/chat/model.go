// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragdesk/internal/app"
	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/lifecycle"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/ui/components"
	"github.com/jeranaias/ragdesk/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat window. Everything it shows
// arrives as bus events through the Bridge; operations on the core run as
// commands off the update loop.
type Model struct {
	app    *app.App
	ctx    context.Context
	bridge *Bridge

	theme *styles.Theme
	keys  KeyMap

	width  int
	height int

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	filter   textinput.Model
	spinner  spinner.Model
	sidebar  *components.Sidebar
	toasts   *components.ToastManager

	// Conversation
	entries   []entry
	revealing string
	sources   []model.Source

	// Core state mirrored from events
	state       string
	enabled     bool
	attachments []model.StagedAttachment
	documents   []model.Document
	showDocs    bool

	confirmDelete *events.HistoryEntry
	quitting      bool
}

// New creates a chat model over a started app.
func New(ctx context.Context, a *app.App) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents..."
	ti.CharLimit = 4096
	ti.Focus()

	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "filter"
	filter.CharLimit = 128

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	theme := styles.NewTheme()
	sp.Style = theme.Spinner

	return Model{
		app:      a,
		ctx:      ctx,
		bridge:   NewBridge(a.Bus),
		theme:    theme,
		keys:     DefaultKeyMap(),
		viewport: vp,
		input:    ti,
		filter:   filter,
		spinner:  sp,
		sidebar:  &components.Sidebar{},
		toasts:   components.NewToastManager(),
		state:    lifecycle.Idle.String(),
		enabled:  true,
		// Listings published before the bridge existed are not replayed.
		documents: a.Documents.Documents(),
	}
}

// Init starts listening for events and asks for the first history listing.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.bridge.Wait(),
		components.ToastTickCmd(),
		m.refreshHistory(""),
	)
}

// Close detaches the model from the bus.
func (m Model) Close() {
	m.bridge.Close()
}

// busy reports whether a request is outstanding.
func (m Model) busy() bool {
	return m.state != lifecycle.Idle.String()
}

// title returns the active session title from the sidebar listing.
func (m Model) title() string {
	for _, e := range m.sidebar.Listing().Entries {
		if e.Selected {
			return e.Title
		}
	}
	return model.DefaultTitle
}
