// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the ragdesk TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Colors (colors.go)

  - Purple - assistant messages and selections
  - Cyan - brand color, info and user highlights
  - Emerald - success
  - Amber - transient chat messages
  - Rose - errors

Status text always carries a StatusIndicators prefix so it reads the same
without color.

# Theme (theme.go)

Theme groups the lipgloss styles per screen region: header, history
sidebar, message bubbles, input area, status bar and toasts. LayoutMode
picks a sidebar width from the terminal width; narrow terminals hide the
sidebar.
*/
package styles
