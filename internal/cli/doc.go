// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the ragdesk command line with cobra.
//
// # Commands
//
//   - ragdesk: full-screen chat window (needs a terminal)
//   - ask [question]: one question, answer on stdout; --attach stages files
//   - chat: line-mode chat with input history; --resume continues a chat
//   - sessions list|show|delete|export: stored chat history
//   - docs list|upload|open|watch: indexed documents
//   - config show|get|set|path|init: configuration file
//   - version
//
// Every command accepts --json and then prints a JSONResponse envelope.
// Colors follow NO_COLOR and FORCE_COLOR (https://no-color.org/).
//
// Commands run against Deps, so tests can swap the process streams and the
// backend for in-memory ones.
package cli
