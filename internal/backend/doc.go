// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend defines the collaborators the chat core depends on and an
// HTTP implementation of the RAG service client.
//
// # Key Types
//
//   - Backend: Query, upload, document listing and external-open operations
//   - History: Session persistence, implemented by package storage
//   - Client: Backend over HTTP (resty on a retryablehttp transport)
//   - APIError: Non-2xx response with status and message
//
// # Sources
//
// Sources in responses are decoded through model.Source, so a bare string
// becomes {Name: basename, Path: string if absolute} and objects pass
// through unchanged.
//
// # Errors
//
// ErrSessionNotFound is the not-found signal of History.LoadSession.
// ErrCanceled marks a user-cancelled action and is never shown to the user.
package backend
