// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// This package defines the core domain types shared by every layer of
// ragdesk: the session log, the messages in it, the source citations that
// accompany assistant answers, and the attachments staged for the next
// outgoing query.
//
// # Key Types
//
//   - Session: One conversation thread with an id, a title and an ordered log
//   - Message: A single user or assistant message with optional sources
//   - Source: A citation, openable when it carries an absolute path
//   - StagedAttachment: A document, image, video or audio capture queued for sending
//
// # Usage
//
// Create a new session and append messages:
//
//	s := model.NewSession()
//	s.Append(model.NewUserMessage("What changed in Q4?"))
//	fmt.Println(s.Title) // "What changed in Q4?"
//
// Sources decoded from JSON are normalized on the way in, so both the legacy
// bare-string form and the rich object form produce a Source:
//
//	var src model.Source
//	_ = json.Unmarshal([]byte(`"/docs/report.pdf"`), &src)
//	src.Name     // "report.pdf"
//	src.Openable() // true
package model
