// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lifecycle

import (
	"context"
	"sync"
)

// canceler holds the cancel function of the in-flight run.
type canceler struct {
	mu     sync.Mutex
	fn     context.CancelFunc
	called bool
}

// set stores fn, replacing any previous run.
func (c *canceler) set(fn context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fn = fn
	c.called = false
}

// cancel invokes the stored function and reports whether a run was
// cancelled. Safe to call repeatedly or with nothing stored.
func (c *canceler) cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fn == nil {
		return false
	}
	c.fn()
	c.fn = nil
	c.called = true
	return true
}

// clear releases the run's context without marking it user-cancelled.
func (c *canceler) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fn != nil {
		c.fn()
		c.fn = nil
	}
}

// cancelled reports whether the last run was cancelled by the user.
func (c *canceler) cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.called
}
