// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the active conversation.
//
// Exactly one session is active at a time. The Store derives its title,
// appends messages, writes it through to history when asked, and replaces
// it on "new chat" or when a stored session is loaded.
//
// # Key Types
//
//   - Store: Mutex-guarded owner of the active model.Session
//
// # Events
//
// Store publishes SessionReset, SessionLoaded, MessageAppended and, after a
// successful write, HistoryChanged.
//
// # Usage
//
//	store := session.NewStore(history, staging, bus, log)
//	store.StartNew(ctx)
//	store.AppendMessage(ctx, true, "What changed in Q4?", nil, true)
//
// Loading an unknown id is a silent no-op:
//
//	found, err := store.Load(ctx, id)
//	if err == nil && !found {
//	    // nothing happened
//	}
package session
