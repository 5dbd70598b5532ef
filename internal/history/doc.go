// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history lists, filters, switches between and deletes stored
// sessions while keeping the active session in sync.
//
// Filtering is a case-insensitive substring match on titles using Unicode
// case folding, so "RÉSUMÉ" matches "résumé". Entries are shown most
// recent first, the reverse of storage order.
package history
