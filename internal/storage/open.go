// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeranaias/ragdesk/internal/backend"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
	DriverMemory = "memory"
)

// Options selects and configures a history driver.
type Options struct {
	Driver string
	// Path is the database file for sqlite and the directory for json.
	Path string
	// MaxSessions applies to the json driver.
	MaxSessions int
}

// Store is a History that may hold resources.
type Store interface {
	backend.History
	Close() error
}

// Open returns the History implementation named by opts.Driver.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case "", DriverSQLite:
		path := opts.Path
		if path != ":memory:" && filepath.Ext(path) == "" {
			path = filepath.Join(path, "history.db")
		}
		return OpenSQLite(path)
	case DriverJSON:
		fs, err := NewFileStore(opts.Path)
		if err != nil {
			return nil, err
		}
		fs.MaxSessions = opts.MaxSessions
		return nopCloser{fs}, nil
	case DriverMemory:
		return nopCloser{NewMemoryStore()}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

type nopCloser struct {
	backend.History
}

func (nopCloser) Close() error { return nil }
