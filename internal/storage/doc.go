// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides session history persistence for ragdesk.
//
// Three drivers implement backend.History:
//
//   - SQLiteStore: sessions and messages tables in one database (default)
//   - FileStore: one JSON document per session, written atomically
//   - MemoryStore: process memory, for tests and throwaway runs
//
// Every driver lists sessions oldest first and reports unknown ids with an
// error matching backend.ErrSessionNotFound.
//
// # Usage
//
//	store, err := storage.Open(storage.Options{Driver: "sqlite", Path: dataDir})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	sessions, err := store.ListSessions(ctx)
//
// # Storage Location
//
// By default history lives in ~/.ragdesk/history.db, or ~/.ragdesk/sessions/
// with the json driver.
package storage
