// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragdesk/internal/offline"
	"github.com/jeranaias/ragdesk/internal/ui/components"
	"github.com/jeranaias/ragdesk/internal/util"
)

const welcomeText = "Ask a question about your indexed documents.\nType /help for commands."

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat window.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	sw := m.theme.SidebarWidth()
	chatWidth := m.viewport.Width

	body := m.viewport.View()
	if sw > 0 {
		side := m.sidebar.View(m.theme, m.filter.Prompt+m.filter.Value(), sw, m.viewport.Height)
		body = lipgloss.JoinHorizontal(lipgloss.Top, side, body)
	}

	parts := []string{m.renderHeader(), body}
	if stack := components.RenderToastStack(m.theme, m.toasts.Toasts(), chatWidth); stack != "" {
		parts = append(parts, lipgloss.PlaceHorizontal(m.width, lipgloss.Right, stack))
	}
	if chips := components.AttachmentChips(m.theme, m.attachments); chips != "" {
		parts = append(parts, chips)
	}
	parts = append(parts, m.renderInput(), m.renderStatus())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	meta := fmt.Sprintf("%d docs", len(m.documents))
	if badge := offline.StatusBadge(m.app.Config.Backend.Offline); badge != "" {
		meta += "  " + badge
	}
	title := m.theme.HeaderTitle.Render("ragdesk") + "  " + util.TruncateWidth(m.title(), m.width/2)
	line := title + "  " + m.theme.HeaderMeta.Render(meta)
	return m.theme.Header.Width(m.width).MaxHeight(1).Render(line)
}

func (m Model) renderInput() string {
	if m.confirmDelete != nil {
		prompt := fmt.Sprintf("Delete %q? (y/n)", util.TruncateWidth(m.confirmDelete.Title, 40))
		return m.theme.Confirm.Render(prompt)
	}
	inner := m.input.View()
	if !m.enabled {
		inner = m.theme.InputDisabled.Render("waiting for the assistant...")
	}
	return m.theme.InputContainer.Width(m.viewport.Width).Render(inner)
}

func (m Model) renderStatus() string {
	state := m.theme.StatusState.Render(m.state)
	if m.busy() {
		state = m.spinner.View() + " " + state
	}

	bindings := m.keys.ShortHelp()
	if m.sidebar.Focused() {
		bindings = m.keys.SidebarHelp()
	}
	help := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		help = append(help, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	return m.theme.StatusBar.Width(m.width).MaxHeight(1).Render(state + "  " + strings.Join(help, "  "))
}

// =============================================================================
// CONVERSATION
// =============================================================================

// renderConversation renders every entry plus the answer being revealed.
func (m Model) renderConversation() string {
	width := m.viewport.Width
	if len(m.entries) == 0 && m.revealing == "" {
		return lipgloss.Place(width, m.viewport.Height, lipgloss.Center, lipgloss.Center,
			m.theme.SidebarPlaceholder.Render(welcomeText))
	}

	blocks := make([]string, 0, len(m.entries)+1)
	for _, e := range m.entries {
		blocks = append(blocks, m.renderEntry(e, width))
	}
	if m.revealing != "" {
		blocks = append(blocks, m.renderBubble("Assistant", strings.TrimSpace(m.revealing), false, width))
	}
	return strings.Join(blocks, "\n")
}

func (m Model) renderEntry(e entry, width int) string {
	bw := bubbleWidth(width)
	switch {
	case e.local:
		return m.theme.SystemBubble.Width(bw).Render(e.rendered)
	case e.msg.Transient:
		return m.theme.SystemBubble.Width(bw).Render(e.msg.Content)
	}

	block := m.renderBubble(e.msg.Role(), strings.TrimSpace(e.rendered), e.msg.IsUser, width)
	if cites := components.Citations(m.theme, e.msg.Sources); cites != "" {
		block += "\n" + lipgloss.NewStyle().Width(bw).Render(cites)
	}
	return block
}

func (m Model) renderBubble(role, text string, user bool, width int) string {
	style := m.theme.AssistantBubble
	if user {
		style = m.theme.UserBubble
	}
	label := m.theme.RoleLabel.Render(role)
	return label + "\n" + style.Width(bubbleWidth(width)).Render(text)
}

// bubbleWidth leaves room for the bubble margin and border.
func bubbleWidth(width int) int {
	w := width - 6
	if w < 10 {
		w = 10
	}
	return w
}
