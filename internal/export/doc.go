// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes stored chats to files people can share.
//
// # Supported Formats
//
//   - md: Markdown with optional YAML frontmatter and citation lists
//   - json: The session exactly as the json history driver stores it
//   - html: Standalone page; answers rendered with goldmark, fenced code
//     highlighted with chroma, sanitized with bluemonday
//
// # Usage
//
//	exp, err := export.ForFormat("html", export.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	path, err := export.ToFile(session, exp, ".")
package export
