// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat window.
//
// The window is a Bubble Tea program layered over internal/app. It never
// calls into the core from Update: sends, loads, deletes and uploads run
// as commands, and everything the core reports comes back through a
// Bridge that drains the event bus into batched messages.
//
// # Layout
//
//	+----------------------------------------------+
//	| ragdesk  Quarterly revenue       12 docs      |
//	+-----------+----------------------------------+
//	| Chats     | You                              |
//	| / filter  |  How did revenue do?             |
//	| > Q4 ...  | Assistant                        |
//	|   Notes   |  Revenue grew 12%                |
//	|           | Sources: [1] q4.pdf              |
//	+-----------+----------------------------------+
//	| > _                                          |
//	| idle  Enter send  Esc cancel  Tab history     |
//	+----------------------------------------------+
//
// The sidebar collapses below 60 columns. While a request is outstanding
// the input is disabled and Esc cancels it.
//
// # Commands
//
// Lines starting with "/" are commands: /attach, /remove, /clear, /upload,
// /open, /docs, /export, /new, /help and /quit.
package chat
