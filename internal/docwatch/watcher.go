// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docwatch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jeranaias/ragdesk/internal/events"
)

// Reasons carried by events.DocumentsChanged.
const (
	ReasonFilesystem = "filesystem"
	ReasonManual     = "manual"
)

// DefaultDebounce is how long a path must be quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// =============================================================================
// WATCHER
// =============================================================================

// Config controls a Watcher.
type Config struct {
	// Dir is the documents directory. It is watched recursively.
	Dir string
	// Include holds doublestar patterns matched against paths relative to
	// Dir. Empty means every file.
	Include []string
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
}

// Watcher publishes events.DocumentsChanged when files under a directory
// change. Bursts of writes are collapsed into one event.
type Watcher struct {
	cfg     Config
	bus     *events.Bus
	log     *zap.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// New validates cfg and creates a stopped watcher.
func New(cfg Config, bus *events.Bus, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	for _, p := range cfg.Include {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
	}
	return &Watcher{
		cfg:     cfg,
		bus:     bus,
		log:     log.Named("docwatch"),
		pending: make(map[string]time.Time),
	}, nil
}

// Notify reports a change that did not come from the filesystem, such as
// a manual refresh.
func (w *Watcher) Notify(paths ...string) {
	w.bus.Publish(events.DocumentsChanged{Reason: ReasonManual, Paths: paths})
}

// Start begins watching. It returns an error when Dir cannot be watched.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.watcher = fw

	if err := w.addRecursive(w.cfg.Dir); err != nil {
		fw.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.processEvents(ctx)
	}()
	go func() {
		defer wg.Done()
		w.processPending(ctx)
	}()
	go func() {
		wg.Wait()
		close(w.done)
	}()

	w.log.Info("watching documents", zap.String("dir", w.cfg.Dir), zap.Strings("include", w.cfg.Include))
	return nil
}

// Close stops watching and waits for the goroutines to exit.
func (w *Watcher) Close() error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) addRecursive(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", dir)
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != dir && len(d.Name()) > 0 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.log.Debug("skip directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("event loop panicked", zap.Any("panic", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(ev.Name); err != nil {
						w.log.Debug("add new directory", zap.Error(err))
					}
					continue
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if w.Matches(ev.Name) {
				w.mu.Lock()
				w.pending[ev.Name] = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) processPending(ctx context.Context) {
	tick := w.cfg.Debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if paths := w.flush(now); len(paths) > 0 {
				w.log.Debug("documents changed", zap.Strings("paths", paths))
				w.bus.Publish(events.DocumentsChanged{Reason: ReasonFilesystem, Paths: paths})
			}
		}
	}
}

// flush removes and returns the paths that have been quiet for Debounce.
func (w *Watcher) flush(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.cfg.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}

// Matches reports whether path falls under Dir and one of the include
// patterns. Hidden files never match.
func (w *Watcher) Matches(path string) bool {
	rel, err := filepath.Rel(w.cfg.Dir, path)
	if err != nil || rel == "." || filepath.IsAbs(rel) || (len(rel) >= 2 && rel[:2] == "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	if base := filepath.Base(rel); len(base) > 0 && base[0] == '.' {
		return false
	}
	if len(w.cfg.Include) == 0 {
		return true
	}
	for _, p := range w.cfg.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
