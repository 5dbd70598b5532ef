// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package docwatch tells the rest of the client when the document set
// changes.
//
// A Watcher follows the documents directory with fsnotify, keeps paths
// matching the include globs and publishes one DocumentsChanged per quiet
// period. Notify publishes the same event on demand. A Lister reacts to
// the event by asking the backend for the current document list.
package docwatch
