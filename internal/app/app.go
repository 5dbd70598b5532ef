// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/ragdesk/internal/attach"
	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/docwatch"
	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/history"
	"github.com/jeranaias/ragdesk/internal/lifecycle"
	"github.com/jeranaias/ragdesk/internal/session"
	"github.com/jeranaias/ragdesk/internal/storage"
	"github.com/jeranaias/ragdesk/internal/stream"
)

// =============================================================================
// APP
// =============================================================================

// App holds every long-lived component. Each is built once by New and
// shared by reference.
type App struct {
	Config *config.Config
	Log    *zap.Logger
	Bus    *events.Bus

	Backend   backend.Backend
	History   storage.Store
	Staging   *attach.Staging
	Sessions  *session.Store
	Renderer  *stream.Renderer
	Lifecycle *lifecycle.Lifecycle
	Browser   *history.Browser
	Documents *docwatch.Lister
	Watcher   *docwatch.Watcher

	stops []func()
}

// Options overrides parts of the wiring.
type Options struct {
	// Backend replaces the HTTP client.
	Backend backend.Backend
	// History replaces the configured store.
	History storage.Store
	// Surface receives reveal frames instead of the event bus.
	Surface stream.Surface
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// Interval overrides the configured token interval when set.
	Interval *time.Duration
	// Markdown overrides the configured renderer.
	Markdown stream.MarkdownRenderer
}

// New wires the components described by cfg.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	a := &App{Config: cfg, Log: log, Bus: events.NewBus()}

	a.Backend = opts.Backend
	if a.Backend == nil {
		a.Backend = backend.NewClient(clientConfig(cfg), log)
	}

	a.History = opts.History
	if a.History == nil {
		path, err := cfg.StoragePath()
		if err != nil {
			return nil, err
		}
		store, err := storage.Open(storage.Options{
			Driver:      cfg.Storage.Driver,
			Path:        path,
			MaxSessions: cfg.Storage.MaxSessions,
		})
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.History = store
	}

	md := opts.Markdown
	if md == nil {
		var err error
		md, err = stream.NewMarkdown(stream.MarkdownOptions{Style: cfg.Stream.Style, WordWrap: cfg.Stream.WordWrap})
		if err != nil {
			log.Warn("markdown renderer unavailable, using plain text", zap.Error(err))
			md = stream.Plain{}
		}
	}
	interval := cfg.TokenInterval()
	if opts.Interval != nil {
		interval = *opts.Interval
	}

	a.Staging = attach.NewStaging(a.Bus)
	a.Sessions = session.NewStore(a.History, a.Staging, a.Bus, log)
	a.Renderer = stream.NewRenderer(
		stream.WithInterval(interval),
		stream.WithMarkdown(md),
		stream.WithLogger(log),
	)
	a.Lifecycle = lifecycle.New(a.Backend, a.Sessions, a.Staging, a.Renderer, a.Bus,
		lifecycle.WithSurface(opts.Surface),
		lifecycle.WithLogger(log),
	)
	a.Browser = history.NewBrowser(a.Sessions, a.History, a.Backend, a.Bus, log)
	a.Documents = docwatch.NewLister(a.Backend, a.Bus, log)

	return a, nil
}

func clientConfig(cfg *config.Config) backend.ClientConfig {
	cc := backend.DefaultClientConfig()
	cc.BaseURL = cfg.Backend.URL
	cc.Timeout = cfg.BackendTimeout()
	cc.MaxRetries = cfg.Backend.MaxRetries
	cc.RateLimit = cfg.Backend.RateLimit
	return cc
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start subscribes the observers and, when a documents directory is
// configured, starts the watcher. A watcher that cannot start is logged
// and skipped.
func (a *App) Start(ctx context.Context) error {
	a.stops = append(a.stops,
		a.Browser.Watch(ctx),
		a.Documents.Watch(ctx),
	)

	if dir := a.Config.DocumentsDir(); dir != "" {
		w, err := docwatch.New(docwatch.Config{
			Dir:      dir,
			Include:  a.Config.Documents.Include,
			Debounce: a.Config.Debounce(),
		}, a.Bus, a.Log)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			a.Log.Warn("document watcher disabled", zap.Error(err))
		} else {
			a.Watcher = w
		}
	}

	if _, err := a.Browser.Refresh(ctx, ""); err != nil {
		a.Log.Warn("initial history listing failed", zap.Error(err))
	}
	return nil
}

// NotifyDocumentsChanged asks every observer to refresh the document list.
func (a *App) NotifyDocumentsChanged() {
	a.Bus.Publish(events.DocumentsChanged{Reason: docwatch.ReasonManual})
}

// Close cancels any outstanding request and releases resources.
func (a *App) Close() error {
	a.Lifecycle.Cancel()
	for i := len(a.stops) - 1; i >= 0; i-- {
		a.stops[i]()
	}
	a.stops = nil

	var errs []error
	if a.Watcher != nil {
		errs = append(errs, a.Watcher.Close())
	}
	if a.History != nil {
		errs = append(errs, a.History.Close())
	}
	return errors.Join(errs...)
}
