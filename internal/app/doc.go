// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app builds the client once from configuration and hands the
// components to the front ends. Nothing here is global; the TUI and the
// CLI commands each own one App.
package app
