// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"strconv"
	"strings"

	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/util"
)

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatSessionList renders sessions as a table for the sessions command.
// Rows appear in the order given.
func FormatSessionList(sessions []model.Session) string {
	if len(sessions) == 0 {
		return "No chat history.\n"
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("ID", 36) + "  " + util.PadRight("Created", 16) + "  " + util.PadRight("Msgs", 4) + "  Title\n")
	sb.WriteString(strings.Repeat("-", 90) + "\n")

	for _, s := range sessions {
		sb.WriteString(util.PadRight(s.ID, 36) + "  " +
			util.PadRight(s.CreatedAt.Format("2006-01-02 15:04"), 16) + "  " +
			util.PadRight(strconv.Itoa(s.MessageCount()), 4) + "  " +
			util.TruncateWidth(s.Title, 30) + "\n")
	}
	return sb.String()
}
