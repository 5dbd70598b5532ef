// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragdesk/internal/events"
)

// =============================================================================
// EVENT BRIDGE
// =============================================================================

// eventsMsg delivers a batch of bus events, oldest first.
type eventsMsg struct {
	events []events.Event
}

// Bridge moves bus events into the Bubble Tea loop. The bus handler only
// appends to an unbounded queue, so publishers never block on the UI.
type Bridge struct {
	mu     sync.Mutex
	queue  []events.Event
	closed bool
	notify chan struct{}
	unsub  func()
}

// NewBridge subscribes to every event on bus.
func NewBridge(bus *events.Bus) *Bridge {
	b := &Bridge{notify: make(chan struct{}, 1)}
	b.unsub = bus.Subscribe(b.push)
	return b
}

func (b *Bridge) push(ev events.Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, ev)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Drain removes and returns every queued event.
func (b *Bridge) Drain() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.queue
	b.queue = nil
	return out
}

// Wait returns a command that blocks until events are queued and then
// delivers all of them as one message. Only one Wait may be outstanding;
// the model issues the next after handling a batch. It returns nil once
// the bridge is closed.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		for {
			b.mu.Lock()
			if len(b.queue) > 0 {
				batch := b.queue
				b.queue = nil
				b.mu.Unlock()
				return eventsMsg{events: batch}
			}
			closed := b.closed
			b.mu.Unlock()
			if closed {
				return nil
			}
			<-b.notify
		}
	}
}

// Close unsubscribes and wakes a pending Wait.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.queue = nil
	b.mu.Unlock()

	b.unsub()
	select {
	case b.notify <- struct{}{}:
	default:
	}
}
