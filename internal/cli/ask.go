// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragdesk/internal/attach"
	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/lifecycle"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/stream"
)

// askResult is the --json payload of ask.
type askResult struct {
	SessionID string         `json:"session_id"`
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Sources   []model.Source `json:"sources"`
}

func newAskCmd(r *runner) *cobra.Command {
	var (
		attachPaths []string
		noPace      bool
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and print the answer",
		Example: `  ragdesk ask "What did Q4 revenue look like?"
  ragdesk ask --attach memo.wav
  echo "Summarize the onboarding guide" | ragdesk ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runAsk(cmd, strings.Join(args, " "), attachPaths, noPace)
		},
	}
	cmd.Flags().StringArrayVarP(&attachPaths, "attach", "a", nil, "stage a file with the question (repeatable)")
	cmd.Flags().BoolVar(&noPace, "no-pace", false, "print the answer at once")
	return cmd
}

func (r *runner) runAsk(cmd *cobra.Command, question string, attachPaths []string, noPace bool) error {
	if strings.TrimSpace(question) == "" && len(attachPaths) == 0 && !isTerminal(r.deps.In) {
		data, err := io.ReadAll(r.deps.In)
		if err != nil {
			return r.fail("ask", fmt.Errorf("read question: %w", err))
		}
		question = strings.TrimSpace(string(data))
	}

	// Pacing only makes sense for a person watching a terminal.
	var surface stream.Surface
	var interval *time.Duration
	paced := !r.opts.jsonOut && !noPace && isTerminal(r.deps.Out)
	if !paced {
		zero := time.Duration(0)
		interval = &zero
	}
	if r.opts.jsonOut {
		surface = stream.SurfaceFunc(func(stream.Frame) {})
	} else {
		surface = stream.NewDeltaWriter(r.deps.Out)
	}

	ctx := cmd.Context()
	a, cleanup, err := r.openApp(ctx, surface, interval)
	if err != nil {
		return r.fail("ask", err)
	}
	defer cleanup()

	for _, p := range attachPaths {
		item, err := attach.FromFile(p, "")
		if err != nil {
			return r.fail("ask", err)
		}
		a.Staging.Add(item)
	}

	var (
		mu       sync.Mutex
		answer   model.Message
		answered bool
		notice   string
	)
	stop := events.On(a.Bus, func(e events.MessageAppended) {
		if e.Message.IsUser {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if e.Message.Transient {
			notice = e.Message.Content
			return
		}
		answer, answered = e.Message, true
	})
	defer stop()

	err = a.Lifecycle.Send(ctx, question)
	if errors.Is(err, lifecycle.ErrNothingToSend) {
		return r.fail("ask", errors.New("nothing to ask: pass a question, pipe one on stdin or --attach a file"))
	}

	mu.Lock()
	defer mu.Unlock()

	if r.opts.jsonOut {
		if err != nil {
			return r.fail("ask", err)
		}
		return NewJSONResponse("ask", askResult{
			SessionID: a.Sessions.ID(),
			Question:  question,
			Answer:    answer.Content,
			Sources:   answer.Sources,
		}).Write(r.deps.Out)
	}

	if err != nil {
		if notice != "" {
			fmt.Fprintln(r.deps.Err, ErrorStyle.Render(notice))
		}
		return err
	}
	fmt.Fprintln(r.deps.Out)
	if answered {
		printSources(r.deps.Out, answer.Sources)
	}
	return nil
}

// printSources lists citations under an answer.
func printSources(w io.Writer, sources []model.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(w, DimStyle.Render("Sources:"))
	for i, src := range sources {
		line := fmt.Sprintf("  [%d] %s", i+1, src.Label())
		if src.Openable() {
			line += DimStyle.Render("  " + src.Path)
		}
		fmt.Fprintln(w, CitationStyle.Render(line))
	}
}
