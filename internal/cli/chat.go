// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragdesk/internal/app"
	"github.com/jeranaias/ragdesk/internal/attach"
	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/lifecycle"
	"github.com/jeranaias/ragdesk/internal/stream"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for the line-mode chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor with history loaded from the config
// directory.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	c := &ChatCLI{line: line, historyFile: filepath.Join(configDir, "chat_history")}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

const chatHelp = `Commands:
  /attach <path>   stage a file for the next question
  /clear           unstage everything
  /new             start a new chat
  /help            show this help
  quit, exit, q    leave (Ctrl+D works too)
Ctrl+C cancels the answer in progress.`

func newChatCmd(r *runner) *cobra.Command {
	var resume string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a line-mode chat in the terminal",
		Example: `  ragdesk chat
  ragdesk chat --resume 0192f0c4-7b1e-7c3a-9d7e-2f5a0c1b9e41`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.runChat(cmd, resume)
		},
	}
	cmd.Flags().StringVar(&resume, "resume", "", "continue a stored chat by id")
	return cmd
}

func (r *runner) runChat(cmd *cobra.Command, resume string) error {
	// Ctrl+C cancels the answer in progress, not the whole chat.
	ctx := context.WithoutCancel(cmd.Context())
	out := r.deps.Out

	writer := stream.NewDeltaWriter(out)
	surface := stream.SurfaceFunc(func(f stream.Frame) {
		if f.Step == 1 {
			fmt.Fprint(out, PromptStyle.Render("assistant> "))
		}
		writer.Render(f)
	})

	a, cleanup, err := r.openApp(ctx, surface, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	stop := watchChatEvents(a, out)
	defer stop()

	if resume != "" {
		ok, err := a.Sessions.Load(ctx, resume)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no chat with id %s", resume)
		}
	}

	fmt.Fprintln(out, TitleStyle.Render("ragdesk chat")+DimStyle.Render("  "+a.Config.Backend.URL))
	fmt.Fprintln(out, DimStyle.Render("Type /help for commands, quit to leave."))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			a.Lifecycle.Cancel()
		}
	}()

	input := NewChatCLI()
	defer input.Close()

	for {
		line, err := input.ReadInput("you> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}

		text := strings.TrimSpace(line)
		if handled, quit := r.chatCommand(ctx, a, text); quit {
			return nil
		} else if handled {
			continue
		}

		writer.Reset()
		err = a.Lifecycle.Send(ctx, text)
		switch {
		case errors.Is(err, lifecycle.ErrNothingToSend):
			continue
		case err == nil:
			fmt.Fprintln(out)
		}
	}
}

// chatCommand runs REPL commands. handled is false for questions.
func (r *runner) chatCommand(ctx context.Context, a *app.App, text string) (handled, quit bool) {
	out := r.deps.Out
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return true, false
	}

	switch strings.ToLower(fields[0]) {
	case "quit", "exit", "q", "/quit", "/exit", "/q":
		return true, true
	case "/help", "/h":
		fmt.Fprintln(out, DimStyle.Render(chatHelp))
	case "/new":
		a.Sessions.StartNew(ctx)
		fmt.Fprintln(out, SuccessStyle.Render("Started a new chat"))
	case "/clear":
		a.Staging.Clear()
	case "/attach":
		if len(fields) < 2 {
			fmt.Fprintln(out, ErrorStyle.Render("Usage: /attach <path>"))
			break
		}
		item, err := attach.FromFile(fields[1], "")
		if err != nil {
			fmt.Fprintln(out, ErrorStyle.Render(err.Error()))
			break
		}
		a.Staging.Add(item)
	default:
		return false, false
	}
	return true, false
}

// watchChatEvents prints what the line-mode chat cannot show inline:
// replayed history, failure messages, citations, staging and notices.
func watchChatEvents(a *app.App, out io.Writer) (stop func()) {
	stops := []func(){
		events.On(a.Bus, func(e events.MessageAppended) {
			switch {
			case e.Replay && e.Message.IsUser:
				fmt.Fprintln(out, PromptStyle.Render("you> ")+e.Message.Content)
			case e.Replay:
				fmt.Fprintln(out, PromptStyle.Render("assistant> ")+e.Message.Content)
				printSources(out, e.Message.Sources)
			case e.Message.Transient && !e.Message.IsUser:
				fmt.Fprintln(out, ErrorStyle.Render(e.Message.Content))
			}
		}),
		events.On(a.Bus, func(e events.SourcesShown) {
			fmt.Fprintln(out)
			printSources(out, e.Sources)
		}),
		events.On(a.Bus, func(e events.AttachmentsChanged) {
			if len(e.Items) > 0 {
				fmt.Fprintln(out, DimStyle.Render(fmt.Sprintf("%d attachment(s) staged", len(e.Items))))
			}
		}),
		events.On(a.Bus, func(n events.Notice) {
			style := DimStyle
			switch n.Level {
			case events.LevelError:
				style = ErrorStyle
			case events.LevelSuccess:
				style = SuccessStyle
			}
			fmt.Fprintln(out, style.Render(n.Text))
		}),
	}
	return func() {
		for _, s := range stops {
			s()
		}
	}
}
