// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/ui/styles"
	"github.com/jeranaias/ragdesk/internal/util"
)

const chipWidth = 24

// AttachmentChips renders staged attachments as numbered chips.
func AttachmentChips(theme *styles.Theme, items []model.StagedAttachment) string {
	if len(items) == 0 {
		return ""
	}
	chips := make([]string, 0, len(items))
	for i, it := range items {
		label := fmt.Sprintf("%d %s %s", i+1, it.Kind.Icon(), it.Name)
		chips = append(chips, theme.AttachmentChip.Render(util.TruncateWidth(label, chipWidth)))
	}
	return strings.Join(chips, "")
}

// Citations renders an answer's sources as numbered chips. Openable
// sources are underlined; the rest are muted.
func Citations(theme *styles.Theme, sources []model.Source) string {
	if len(sources) == 0 {
		return ""
	}
	parts := make([]string, 0, len(sources))
	for i, src := range sources {
		label := fmt.Sprintf("[%d] %s", i+1, util.TruncateWidth(src.Label(), chipWidth))
		if src.Openable() {
			parts = append(parts, theme.Citation.Render(label))
		} else {
			parts = append(parts, theme.CitationMuted.Render(label))
		}
	}
	return "Sources: " + strings.Join(parts, "  ")
}
