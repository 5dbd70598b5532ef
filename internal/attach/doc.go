// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach stages documents, images and audio captures for the next
// outgoing message.
//
// # Key Types
//
//   - Staging: Ordered, mutex-guarded list of StagedAttachment values
//
// Every mutation publishes events.AttachmentsChanged with a snapshot of the
// list. Kinds are sniffed from content with mimetype when not supplied.
//
// # Usage
//
//	staging := attach.NewStaging(bus)
//	item, err := attach.FromFile("notes/q4.pdf", "")
//	if err == nil {
//	    staging.Add(item)
//	}
package attach
