// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/ragdesk/internal/backend"
)

// ErrInvalidID is returned for ids that cannot name a stored session.
var ErrInvalidID = errors.New("invalid session id")

// StoreError describes a failed storage operation.
// It unwraps to the underlying cause, so errors.Is(err,
// backend.ErrSessionNotFound) works across every driver.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.ID, e.Err)
}

// Unwrap returns the cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

func notFound(op, id string) error {
	return &StoreError{Op: op, ID: id, Err: backend.ErrSessionNotFound}
}

func wrap(op, id string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, ID: id, Err: err}
}

// validateID rejects ids that could escape the store directory.
func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return ErrInvalidID
	}
	return nil
}
