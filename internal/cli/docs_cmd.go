// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/model"
)

func newDocsCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"documents"},
		Short:   "Inspect and manage the indexed documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.runDocsList(cmd)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List indexed documents",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.runDocsList(cmd)
			},
		},
		&cobra.Command{
			Use:   "upload <document|image|video|audio>",
			Short: "Ask the backend to ingest files of a kind",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.runDocsUpload(cmd, model.AttachmentKind(strings.ToLower(args[0])))
			},
		},
		&cobra.Command{
			Use:   "open <path>",
			Short: "Open a document with the desktop's default application",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.runDocsOpen(cmd, args[0])
			},
		},
		newDocsWatchCmd(r),
	)
	return cmd
}

func (r *runner) runDocsList(cmd *cobra.Command) error {
	a, cleanup, err := r.openApp(cmd.Context(), nil, nil)
	if err != nil {
		return r.fail("docs list", err)
	}
	defer cleanup()

	docs, err := a.Documents.Refresh(cmd.Context())
	if err != nil {
		return r.fail("docs list", err)
	}
	if r.opts.jsonOut {
		return NewJSONResponse("docs list", docs).Write(r.deps.Out)
	}
	printDocuments(r.deps.Out, docs)
	return nil
}

func (r *runner) runDocsUpload(cmd *cobra.Command, kind model.AttachmentKind) error {
	a, cleanup, err := r.openApp(cmd.Context(), nil, nil)
	if err != nil {
		return r.fail("docs upload", err)
	}
	defer cleanup()

	stop := events.On(a.Bus, func(n events.Notice) {
		if !r.opts.jsonOut && n.Level == events.LevelSuccess {
			fmt.Fprintln(r.deps.Out, SuccessStyle.Render(n.Text))
		}
	})
	defer stop()

	if err := a.Lifecycle.Upload(cmd.Context(), kind); err != nil {
		return r.fail("docs upload", err)
	}
	if r.opts.jsonOut {
		return NewJSONResponse("docs upload", map[string]string{"kind": string(kind)}).Write(r.deps.Out)
	}
	return nil
}

func (r *runner) runDocsOpen(cmd *cobra.Command, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return r.fail("docs open", err)
	}
	a, cleanup, err := r.openApp(cmd.Context(), nil, nil)
	if err != nil {
		return r.fail("docs open", err)
	}
	defer cleanup()

	src := model.Source{Name: filepath.Base(abs), Path: abs}
	if err := a.Browser.OpenSource(cmd.Context(), src); err != nil {
		return r.fail("docs open", err)
	}
	if r.opts.jsonOut {
		return NewJSONResponse("docs open", src).Write(r.deps.Out)
	}
	return nil
}

func newDocsWatchCmd(r *runner) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the document list whenever the documents folder changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.runDocsWatch(cmd, dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "folder to watch (overrides documents.dir)")
	return cmd
}

func (r *runner) runDocsWatch(cmd *cobra.Command, dir string) error {
	ctx := cmd.Context()
	r.opts.documentsDir = dir
	a, cleanup, err := r.openApp(ctx, nil, nil)
	if err != nil {
		return err
	}
	defer cleanup()
	if a.Watcher == nil {
		return fmt.Errorf("no documents folder to watch; set documents.dir or pass --dir")
	}

	stop := events.On(a.Bus, func(e events.DocumentsListed) {
		fmt.Fprintln(r.deps.Out, separator(40))
		printDocuments(r.deps.Out, e.Documents)
	})
	defer stop()

	fmt.Fprintln(r.deps.Out, DimStyle.Render("Watching "+a.Config.DocumentsDir()+" (Ctrl+C to stop)"))
	a.NotifyDocumentsChanged()
	<-ctx.Done()
	return nil
}

// printDocuments renders the document list as a table.
func printDocuments(w io.Writer, docs []model.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No documents indexed"))
		return
	}
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("%d indexed document(s)", len(docs))))
	for _, d := range docs {
		meta := d.Type
		if d.Size > 0 {
			meta = strings.TrimSpace(meta + " " + humanize.Bytes(uint64(d.Size)))
		}
		if !d.AddedAt.IsZero() {
			meta = strings.TrimSpace(meta + " " + humanize.Time(d.AddedAt))
		}
		fmt.Fprintln(w, field(d.Name, DimStyle.Render(meta)))
	}
}
