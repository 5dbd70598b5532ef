// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/ragdesk/internal/model"
)

// opDoneMsg reports the end of an operation run off the update loop.
type opDoneMsg struct {
	op  string
	err error
}

// entry is one block of the conversation view.
type entry struct {
	msg      model.Message
	rendered string
	// local entries are help and listings that never reach the session.
	local bool
}
