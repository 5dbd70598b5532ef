// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayoutMode(t *testing.T) {
	tests := []struct {
		width   int
		mode    LayoutMode
		sidebar int
	}{
		{40, LayoutNarrow, 0},
		{59, LayoutNarrow, 0},
		{60, LayoutMedium, 24},
		{99, LayoutMedium, 24},
		{100, LayoutWide, 34},
	}
	th := NewTheme()
	for _, tt := range tests {
		th.SetSize(tt.width, 30)
		assert.Equal(t, tt.mode, th.LayoutMode(), "width %d", tt.width)
		assert.Equal(t, tt.sidebar, th.SidebarWidth(), "width %d", tt.width)
	}
}

func TestRenderHelpers_IncludeIndicator(t *testing.T) {
	assert.Contains(t, RenderSuccess("saved"), StatusIndicators.Success)
	assert.Contains(t, RenderError("failed"), StatusIndicators.Error)
	assert.Contains(t, RenderInfo("note"), "note")
}
