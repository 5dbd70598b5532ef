// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docwatch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/model"
)

// DocumentSource lists the documents the backend has ingested.
type DocumentSource interface {
	ListDocuments(ctx context.Context) ([]model.Document, error)
}

// Lister keeps the document list current. Each DocumentsChanged triggers a
// fresh query whose result is published as events.DocumentsListed.
type Lister struct {
	src DocumentSource
	bus *events.Bus
	log *zap.Logger

	mu   sync.Mutex
	docs []model.Document
}

// NewLister creates a lister.
func NewLister(src DocumentSource, bus *events.Bus, log *zap.Logger) *Lister {
	if log == nil {
		log = zap.NewNop()
	}
	return &Lister{src: src, bus: bus, log: log.Named("documents")}
}

// Watch refreshes on every DocumentsChanged until the returned stop
// function is called.
func (l *Lister) Watch(ctx context.Context) (stop func()) {
	return events.On(l.bus, func(ev events.DocumentsChanged) {
		l.log.Debug("refresh", zap.String("reason", ev.Reason), zap.Int("paths", len(ev.Paths)))
		if _, err := l.Refresh(ctx); err != nil {
			l.log.Warn("refresh documents failed", zap.Error(err))
		}
	})
}

// Refresh queries the backend and publishes the list.
func (l *Lister) Refresh(ctx context.Context) ([]model.Document, error) {
	docs, err := l.src.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	l.mu.Lock()
	l.docs = append([]model.Document(nil), docs...)
	l.mu.Unlock()

	l.bus.Publish(events.DocumentsListed{Documents: docs})
	return docs, nil
}

// Documents returns the last list fetched.
func (l *Lister) Documents() []model.Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Document(nil), l.docs...)
}
