// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"io"
	"os"
)

// =============================================================================
// ATTACHMENT KIND
// =============================================================================

// AttachmentKind classifies a staged attachment.
type AttachmentKind string

const (
	KindDocument AttachmentKind = "document"
	KindImage    AttachmentKind = "image"
	KindVideo    AttachmentKind = "video"
	KindAudio    AttachmentKind = "audio"
)

// Valid reports whether k is one of the known kinds.
func (k AttachmentKind) Valid() bool {
	switch k {
	case KindDocument, KindImage, KindVideo, KindAudio:
		return true
	}
	return false
}

// Icon returns a short glyph used on attachment chips.
func (k AttachmentKind) Icon() string {
	switch k {
	case KindImage:
		return "🖼"
	case KindVideo:
		return "🎞"
	case KindAudio:
		return "🎤"
	default:
		return "📄"
	}
}

// =============================================================================
// STAGED ATTACHMENT
// =============================================================================

// PayloadFunc opens the raw bytes of an attachment.
type PayloadFunc func() (io.ReadCloser, error)

// StagedAttachment is a file or capture queued for the next outgoing message.
type StagedAttachment struct {
	Name string
	Kind AttachmentKind
	// Path is a local preview reference (a file or temp-file path).
	Path string
	// Payload is nil when the attachment has no raw binary handle.
	Payload PayloadFunc
}

// HasPayload reports whether raw bytes can be read.
func (a StagedAttachment) HasPayload() bool {
	return a.Payload != nil
}

// ReadPayload reads the whole payload into memory.
func (a StagedAttachment) ReadPayload() ([]byte, error) {
	if a.Payload == nil {
		return nil, io.ErrUnexpectedEOF
	}
	rc, err := a.Payload()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// FilePayload returns a PayloadFunc reading the file at path.
func FilePayload(path string) PayloadFunc {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// BytesPayload returns a PayloadFunc over an in-memory capture.
func BytesPayload(data []byte) PayloadFunc {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}
