// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across ragdesk.
//
// # Key Functions
//
//   - AtomicWriteFile: Crash-safe file writing with fsync and rename
//   - TruncateRunes: Code-point truncation with an ellipsis
//   - TruncateWidth, PadRight: Terminal-cell aware layout
//
// # Usage
//
//	title := util.TruncateWidth(session.Title, 24)
//	err := util.AtomicWriteFile(path, data, 0o644)
package util
