// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/export"
	"github.com/jeranaias/ragdesk/internal/history"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/storage"
	"github.com/jeranaias/ragdesk/internal/util"
)

// sessionSummary is one row of `sessions list --json`.
type sessionSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Created  string `json:"created_at"`
	Messages int    `json:"messages"`
	Last     string `json:"last_message,omitempty"`
}

func newSessionsCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session", "history"},
		Short:   "List, show, export and delete stored chats",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list [filter]",
			Short: "List chats, newest first, optionally filtered by title",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				filter := ""
				if len(args) == 1 {
					filter = args[0]
				}
				return r.runSessionsList(cmd.Context(), filter)
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print a chat as markdown",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.withSession(cmd.Context(), args[0], func(s *model.Session) error {
					data, err := export.NewMarkdownExporter(&export.Options{IncludeTimestamps: true}).Export(s)
					if err != nil {
						return err
					}
					_, err = r.deps.Out.Write(data)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a chat",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.runSessionsDelete(cmd.Context(), args[0])
			},
		},
		newSessionsExportCmd(r),
	)
	return cmd
}

func newSessionsExportCmd(r *runner) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a chat as markdown, JSON or HTML",
		Long: `Export a chat as markdown, JSON or HTML.

Without -o the export goes to stdout. When -o names a directory the file
gets a generated name.`,
		Example: `  ragdesk sessions export 0192f0c4-7b1e-7c3a-9d7e-2f5a0c1b9e41
  ragdesk sessions export 0192f0c4-7b1e-7c3a-9d7e-2f5a0c1b9e41 --format html -o ~/Desktop`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := export.ForFormat(format, export.DefaultOptions())
			if err != nil {
				return r.fail("sessions export", err)
			}
			return r.withSession(cmd.Context(), args[0], func(s *model.Session) error {
				path, err := writeExport(r.deps.Out, s, exp, output)
				if err != nil || path == "" {
					return err
				}
				fmt.Fprintln(r.deps.Out, SuccessStyle.Render("Exported to "+path))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", strings.Join(export.Formats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "file or directory to write instead of stdout")
	return cmd
}

// writeExport sends the export to w, a directory or a file, and returns the
// path written, if any.
func writeExport(w io.Writer, s *model.Session, exp export.Exporter, output string) (string, error) {
	if output == "" {
		data, err := exp.Export(s)
		if err != nil {
			return "", err
		}
		_, err = w.Write(data)
		return "", err
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return export.ToFile(s, exp, output)
	}
	data, err := exp.Export(s)
	if err != nil {
		return "", err
	}
	return output, util.AtomicWriteFile(output, data, 0o600)
}

// openHistory opens the configured store without the rest of the core.
func (r *runner) openHistory() (storage.Store, error) {
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, err
	}
	path, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	return storage.Open(storage.Options{
		Driver:      cfg.Storage.Driver,
		Path:        path,
		MaxSessions: cfg.Storage.MaxSessions,
	})
}

func (r *runner) runSessionsList(ctx context.Context, filter string) error {
	store, err := r.openHistory()
	if err != nil {
		return r.fail("sessions list", err)
	}
	defer store.Close()

	all, err := store.ListSessions(ctx)
	if err != nil {
		return r.fail("sessions list", err)
	}

	// Same ordering and matching as the sidebar.
	listing := history.Build(all, filter, "")
	byID := make(map[string]model.Session, len(all))
	for _, s := range all {
		byID[s.ID] = s
	}
	sessions := make([]model.Session, 0, len(listing.Entries))
	for _, e := range listing.Entries {
		sessions = append(sessions, byID[e.ID])
	}

	if r.opts.jsonOut {
		rows := make([]sessionSummary, 0, len(sessions))
		for _, s := range sessions {
			row := sessionSummary{
				ID:       s.ID,
				Title:    s.Title,
				Created:  s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
				Messages: s.MessageCount(),
			}
			if last, ok := s.LastMessage(); ok {
				row.Last = last.Preview(80)
			}
			rows = append(rows, row)
		}
		return NewJSONResponse("sessions list", rows).Write(r.deps.Out)
	}

	if len(sessions) == 0 && listing.Placeholder != "" {
		fmt.Fprintln(r.deps.Out, DimStyle.Render(listing.Placeholder))
		return nil
	}
	_, err = fmt.Fprint(r.deps.Out, storage.FormatSessionList(sessions))
	return err
}

func (r *runner) runSessionsDelete(ctx context.Context, id string) error {
	store, err := r.openHistory()
	if err != nil {
		return r.fail("sessions delete", err)
	}
	defer store.Close()

	if err := store.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, backend.ErrSessionNotFound) {
			err = fmt.Errorf("no chat with id %s", id)
		}
		return r.fail("sessions delete", err)
	}
	if r.opts.jsonOut {
		return NewJSONResponse("sessions delete", map[string]string{"id": id}).Write(r.deps.Out)
	}
	fmt.Fprintln(r.deps.Out, SuccessStyle.Render("Deleted "+id))
	return nil
}

// withSession loads id and hands it to fn.
func (r *runner) withSession(ctx context.Context, id string, fn func(*model.Session) error) error {
	store, err := r.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	s, err := store.LoadSession(ctx, id)
	if errors.Is(err, backend.ErrSessionNotFound) {
		return fmt.Errorf("no chat with id %s", id)
	}
	if err != nil {
		return err
	}
	return fn(s)
}
