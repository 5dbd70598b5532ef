// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragdesk/internal/attach"
	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/export"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/ui/components"
)

// Operation names carried by opDoneMsg.
const (
	opSend    = "send"
	opAttach  = "attach"
	opUpload  = "upload"
	opOpen    = "open"
	opSelect  = "select"
	opDelete  = "delete"
	opNew     = "new"
	opHistory = "history"
	opDocs    = "docs"
	opExport  = "export"
	opCommand = "command"
)

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// CommandHandler handles one slash command.
type CommandHandler func(m *Model, args []string) tea.Cmd

// commandHandlers maps command names to their handler functions.
var commandHandlers = map[string]CommandHandler{
	"help":   handleHelpCommand,
	"h":      handleHelpCommand,
	"?":      handleHelpCommand,
	"attach": handleAttachCommand,
	"a":      handleAttachCommand,
	"remove": handleRemoveCommand,
	"rm":     handleRemoveCommand,
	"clear":  handleClearCommand,
	"upload": handleUploadCommand,
	"open":   handleOpenCommand,
	"o":      handleOpenCommand,
	"docs":   handleDocsCommand,
	"export": handleExportCommand,
	"new":    handleNewCommand,
	"n":      handleNewCommand,
	"quit":   handleQuitCommand,
	"q":      handleQuitCommand,
	"exit":   handleQuitCommand,
}

// parseCommand splits "/name args..." into a lowercase name and its args.
func parseCommand(input string) (string, []string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", nil, false
	}
	parts := strings.Fields(input)
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	if name == "" {
		return "", nil, false
	}
	return name, parts[1:], true
}

// submit sends the input, or runs it when it is a slash command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	m.input.Reset()

	if name, args, ok := parseCommand(text); ok {
		handler, known := commandHandlers[name]
		if !known {
			m.notify(events.Error(fmt.Sprintf("Unknown command /%s. Type /help for commands", name)))
			return m, nil
		}
		cmd := handler(&m, args)
		m.layout()
		m.refreshViewport()
		return m, cmd
	}

	a, ctx := m.app, m.ctx
	return m, func() tea.Msg {
		return opDoneMsg{op: opSend, err: a.Lifecycle.Send(ctx, text)}
	}
}

func (m *Model) notify(n events.Notice) {
	m.toasts.Add(components.NewToast(n, time.Now()))
	m.layout()
}

// =============================================================================
// CORE OPERATIONS
// =============================================================================

func (m *Model) newChat() tea.Cmd {
	if m.busy() {
		m.notify(events.Info(busyNotice))
		return nil
	}
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		a.Sessions.StartNew(ctx)
		_, err := a.Browser.Refresh(ctx, a.Browser.Filter())
		return opDoneMsg{op: opNew, err: err}
	}
}

func (m *Model) selectChat(id string) tea.Cmd {
	if m.busy() {
		m.notify(events.Info(busyNotice))
		return nil
	}
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: opSelect, err: a.Browser.Select(ctx, id)}
	}
}

func (m *Model) deleteChat(id string) tea.Cmd {
	if m.busy() {
		m.notify(events.Info(busyNotice))
		return nil
	}
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: opDelete, err: a.Browser.Delete(ctx, id)}
	}
}

func (m Model) refreshHistory(filter string) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		_, err := a.Browser.Refresh(ctx, filter)
		return opDoneMsg{op: opHistory, err: err}
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

const helpText = `Commands:
  /attach <path> [kind]  stage a file (kind: document, image, video, audio)
  /remove <n>            unstage attachment n
  /clear                 unstage everything
  /upload <kind>         upload files of kind to the knowledge base
  /open <n>              open source n of the last answer
  /docs                  list indexed documents
  /export [fmt] [dir]    save this chat (fmt: md, json, html)
  /new                   start a new chat
  /quit                  exit

Keys: Enter send, Esc cancel, Tab history, C-n new chat, C-x delete chat`

func handleHelpCommand(m *Model, _ []string) tea.Cmd {
	m.entries = append(m.entries, localEntry(helpText))
	return nil
}

func handleAttachCommand(m *Model, args []string) tea.Cmd {
	if len(args) == 0 {
		m.notify(events.Error("Usage: /attach <path> [kind]"))
		return nil
	}
	path := args[0]
	var kind model.AttachmentKind
	if len(args) > 1 {
		kind = model.AttachmentKind(strings.ToLower(args[1]))
		if !kind.Valid() {
			m.notify(events.Error(fmt.Sprintf("Unknown attachment kind %q", args[1])))
			return nil
		}
	}
	staging := m.app.Staging
	return func() tea.Msg {
		item, err := attach.FromFile(path, kind)
		if err != nil {
			return opDoneMsg{op: opAttach, err: fmt.Errorf("attach %s: %w", path, err)}
		}
		staging.Add(item)
		return opDoneMsg{op: opAttach}
	}
}

func handleRemoveCommand(m *Model, args []string) tea.Cmd {
	n, ok := indexArg(args)
	if !ok || !m.app.Staging.Remove(n-1) {
		m.notify(events.Error("Usage: /remove <n> with n from the attachment list"))
	}
	return nil
}

func handleClearCommand(m *Model, _ []string) tea.Cmd {
	m.app.Staging.Clear()
	return nil
}

func handleUploadCommand(m *Model, args []string) tea.Cmd {
	if len(args) == 0 {
		m.notify(events.Error("Usage: /upload <document|image|video|audio>"))
		return nil
	}
	kind := model.AttachmentKind(strings.ToLower(args[0]))
	if !kind.Valid() {
		m.notify(events.Error(fmt.Sprintf("Unknown attachment kind %q", args[0])))
		return nil
	}
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: opUpload, err: a.Lifecycle.Upload(ctx, kind)}
	}
}

func handleOpenCommand(m *Model, args []string) tea.Cmd {
	n, ok := indexArg(args)
	if !ok || n > len(m.sources) {
		m.notify(events.Error("Usage: /open <n> with n from the last answer's sources"))
		return nil
	}
	src := m.sources[n-1]
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: opOpen, err: a.Browser.OpenSource(ctx, src)}
	}
}

func handleDocsCommand(m *Model, _ []string) tea.Cmd {
	m.showDocs = true
	a := m.app
	return func() tea.Msg {
		a.NotifyDocumentsChanged()
		return opDoneMsg{op: opDocs}
	}
}

func handleExportCommand(m *Model, args []string) tea.Cmd {
	format, dir := "md", "."
	if len(args) > 0 {
		format = args[0]
	}
	if len(args) > 1 {
		dir = args[1]
	}
	exp, err := export.ForFormat(format, export.DefaultOptions())
	if err != nil {
		m.notify(events.Error(err.Error()))
		return nil
	}
	a := m.app
	return func() tea.Msg {
		path, err := export.ToFile(a.Sessions.Current().Persistable(), exp, dir)
		if err != nil {
			return opDoneMsg{op: opExport, err: err}
		}
		a.Bus.Publish(events.Success("Exported to " + path))
		return opDoneMsg{op: opExport}
	}
}

func handleNewCommand(m *Model, _ []string) tea.Cmd {
	return m.newChat()
}

func handleQuitCommand(m *Model, _ []string) tea.Cmd {
	m.quitting = true
	m.app.Lifecycle.Cancel()
	m.bridge.Close()
	return tea.Quit
}

// indexArg parses a 1-based index argument.
func indexArg(args []string) (int, bool) {
	if len(args) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// documentList formats the indexed documents as a local entry.
func documentList(docs []model.Document) string {
	if len(docs) == 0 {
		return "No documents indexed"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d indexed document(s):", len(docs))
	for _, d := range docs {
		b.WriteString("\n  ")
		b.WriteString(d.Name)
		if d.Type != "" {
			b.WriteString(" (" + d.Type + ")")
		}
	}
	return b.String()
}
