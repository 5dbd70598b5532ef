// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable pieces of the ragdesk TUI: the
// history sidebar, attachment and citation chips, and corner toasts for
// events.Notice.
package components
