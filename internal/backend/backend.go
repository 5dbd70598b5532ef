// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/ragdesk/internal/model"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Backend is the RAG service the chat core talks to.
type Backend interface {
	SendTextQuery(ctx context.Context, message string) (Answer, error)
	SendAudioQuery(ctx context.Context, payload []byte, fileName string) (Answer, error)
	UploadAttachments(ctx context.Context, kind model.AttachmentKind) (UploadResult, error)
	ListDocuments(ctx context.Context) ([]model.Document, error)
	OpenExternally(ctx context.Context, absPath string) (OpenResult, error)
}

// History persists sessions.
type History interface {
	SaveSession(ctx context.Context, s *model.Session) error
	// LoadSession returns ErrSessionNotFound for unknown ids.
	LoadSession(ctx context.Context, id string) (*model.Session, error)
	// ListSessions returns sessions in storage order, oldest first.
	ListSessions(ctx context.Context) ([]model.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// Answer is a successful query response.
type Answer struct {
	Text    string         `json:"answer"`
	Sources []model.Source `json:"sources"`
}

// Upload statuses.
const (
	StatusSuccess  = "success"
	StatusCanceled = "canceled"
	StatusError    = "error"
)

// UploadResult reports the outcome of an attachment upload.
type UploadResult struct {
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	Files   []string `json:"files,omitempty"`
}

// Canceled reports whether the user dismissed the upload.
func (r UploadResult) Canceled() bool {
	return r.Status == StatusCanceled
}

// OpenResult reports the outcome of opening a file externally.
type OpenResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the open succeeded.
func (r OpenResult) OK() bool {
	return r.Status == StatusSuccess || r.Status == ""
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionNotFound is returned by History.LoadSession for unknown ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCanceled marks a user-cancelled action. It is never shown.
	ErrCanceled = errors.New("canceled")

	// ErrNotOpenable is returned when a source has no absolute path.
	ErrNotOpenable = errors.New("source has no openable path")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// Is matches any *APIError with the same status, or any status when the
// target's Status is zero.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Status == 0 || t.Status == e.Status
}

// Retryable reports whether the status is worth retrying.
func (e *APIError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}
