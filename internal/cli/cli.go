// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/ragdesk/internal/app"
	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/logging"
	"github.com/jeranaias/ragdesk/internal/stream"
	chatui "github.com/jeranaias/ragdesk/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

// Deps are the streams and collaborators commands run against.
type Deps struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
	// Backend replaces the HTTP client when set.
	Backend backend.Backend
}

type rootOptions struct {
	configPath   string
	backendURL   string
	debug        bool
	jsonOut      bool
	documentsDir string // overrides documents.dir for one command
}

type runner struct {
	deps Deps
	opts rootOptions
}

// Execute runs the command line against the process streams.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCmd(Deps{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCmd builds the ragdesk command tree. Without a subcommand it opens
// the full-screen chat window.
func NewRootCmd(deps Deps) *cobra.Command {
	r := &runner{deps: deps}

	root := &cobra.Command{
		Use:   "ragdesk",
		Short: "Chat with your documents through a RAG backend",
		Long: `ragdesk is a terminal client for a retrieval-augmented chat service.

Run it without arguments for the full-screen chat window, or use the
subcommands for one-shot questions, a line-mode chat and history tools.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          r.runTUI,
	}
	root.SetIn(deps.In)
	root.SetOut(deps.Out)
	root.SetErr(deps.Err)

	pf := root.PersistentFlags()
	pf.StringVar(&r.opts.configPath, "config", "", "config file (default ~/.ragdesk/config.toml)")
	pf.StringVar(&r.opts.backendURL, "backend", "", "backend base URL (overrides config)")
	pf.BoolVar(&r.opts.debug, "debug", false, "debug logging")
	pf.BoolVar(&r.opts.jsonOut, "json", false, "machine-readable output")

	root.AddCommand(
		newAskCmd(r),
		newChatCmd(r),
		newSessionsCmd(r),
		newDocsCmd(r),
		newConfigCmd(r),
		newVersionCmd(r),
	)
	return root
}

func newVersionCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.opts.jsonOut {
				return NewJSONResponse("version", map[string]string{
					"version":    Version,
					"git_commit": GitCommit,
					"build_date": BuildDate,
				}).Write(r.deps.Out)
			}
			fmt.Fprintf(r.deps.Out, "ragdesk %s (%s, built %s)\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}

// runTUI opens the full-screen chat window.
func (r *runner) runTUI(cmd *cobra.Command, _ []string) error {
	if !isTerminal(r.deps.In) || !isTerminal(r.deps.Out) {
		return errors.New("the chat window needs a terminal; use 'ragdesk ask' or 'ragdesk chat' instead")
	}
	a, cleanup, err := r.openApp(cmd.Context(), nil, nil)
	if err != nil {
		return err
	}
	defer cleanup()
	return chatui.Run(cmd.Context(), a)
}

// =============================================================================
// SHARED WIRING
// =============================================================================

// loadConfig reads the config file and applies the global flags.
func (r *runner) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if r.opts.configPath != "" {
		cfg, err = config.LoadFromPath(r.opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if r.opts.backendURL != "" {
		cfg.Backend.URL = r.opts.backendURL
	}
	if r.opts.documentsDir != "" {
		cfg.Documents.Dir = r.opts.documentsDir
	}
	if r.opts.debug {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes to the configured log file so terminal output stays
// clean. A logger that cannot be opened degrades to a no-op.
func (r *runner) newLogger(cfg *config.Config) *zap.Logger {
	path, err := cfg.LogPath()
	if err == nil {
		var log *zap.Logger
		log, err = logging.New(logging.FileConfig(path, cfg.Log.Level, cfg.Log.Development))
		if err == nil {
			return log.With(zap.String("version", Version))
		}
	}
	fmt.Fprintln(r.deps.Err, DimStyle.Render("logging disabled: "+err.Error()))
	return zap.NewNop()
}

// openApp wires and starts the core. cleanup closes it and flushes logs.
func (r *runner) openApp(ctx context.Context, surface stream.Surface, interval *time.Duration) (*app.App, func(), error) {
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := r.newLogger(cfg)

	a, err := app.New(cfg, app.Options{
		Backend:  r.deps.Backend,
		Surface:  surface,
		Logger:   log,
		Interval: interval,
	})
	if err != nil {
		logging.Sync(log)
		return nil, nil, err
	}
	if err := a.Start(ctx); err != nil {
		a.Close()
		logging.Sync(log)
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			log.Warn("close", zap.Error(err))
		}
		logging.Sync(log)
	}
	return a, cleanup, nil
}

// fail prints err under --json and passes it on.
func (r *runner) fail(command string, err error) error {
	if r.opts.jsonOut && err != nil {
		_ = NewJSONErrorResponse(command, err).Write(r.deps.Out)
	}
	return err
}
