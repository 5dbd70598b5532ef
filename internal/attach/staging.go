// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"fmt"
	"sync"

	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/model"
)

// =============================================================================
// STAGING
// =============================================================================

// Staging holds the attachments queued for the next outgoing message.
type Staging struct {
	mu    sync.Mutex
	items []model.StagedAttachment
	bus   *events.Bus
}

// NewStaging creates an empty staging area publishing to bus.
func NewStaging(bus *events.Bus) *Staging {
	return &Staging{bus: bus}
}

// Add appends one attachment. There is no deduplication and no limit.
func (s *Staging) Add(item model.StagedAttachment) {
	s.mu.Lock()
	s.items = append(s.items, item)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(events.AttachmentsChanged{Items: snapshot})
}

// AddMany appends items in order with a single change notification.
func (s *Staging) AddMany(items []model.StagedAttachment) {
	if len(items) == 0 {
		return
	}
	s.mu.Lock()
	s.items = append(s.items, items...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(events.AttachmentsChanged{Items: snapshot})
	if len(items) >= 2 {
		s.bus.Publish(events.Success(fmt.Sprintf("%d files attached", len(items))))
	}
}

// Remove drops the attachment at index. An out-of-range index leaves the
// list untouched and returns false.
func (s *Staging) Remove(index int) bool {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:index:index], s.items[index+1:]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(events.AttachmentsChanged{Items: snapshot})
	return true
}

// Clear empties the list.
func (s *Staging) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	s.bus.Publish(events.AttachmentsChanged{Items: []model.StagedAttachment{}})
}

// List returns a copy of the staged attachments in order.
func (s *Staging) List() []model.StagedAttachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the number of staged attachments.
func (s *Staging) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Audio returns the first staged audio attachment that carries a payload.
func (s *Staging) Audio() (model.StagedAttachment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.Kind == model.KindAudio && item.HasPayload() {
			return item, true
		}
	}
	return model.StagedAttachment{}, false
}

func (s *Staging) snapshotLocked() []model.StagedAttachment {
	out := make([]model.StagedAttachment, len(s.items))
	copy(out, s.items)
	return out
}
