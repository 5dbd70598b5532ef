// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jeranaias/ragdesk/internal/model"
)

// =============================================================================
// KIND DETECTION
// =============================================================================

// KindForMIME maps a MIME type onto an attachment kind.
// Anything that is not image, video or audio is a document.
func KindForMIME(mime string) model.AttachmentKind {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return model.KindImage
	case strings.HasPrefix(mime, "video/"):
		return model.KindVideo
	case strings.HasPrefix(mime, "audio/"):
		return model.KindAudio
	default:
		return model.KindDocument
	}
}

// DetectKind sniffs in-memory content.
func DetectKind(data []byte) model.AttachmentKind {
	return KindForMIME(mimetype.Detect(data).String())
}

// DetectFileKind sniffs the file at path.
func DetectFileKind(path string) (model.AttachmentKind, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect %s: %w", path, err)
	}
	return KindForMIME(mt.String()), nil
}

// FromFile builds a staged attachment for a local file. When kind is empty
// it is detected from the file content.
func FromFile(path string, kind model.AttachmentKind) (model.StagedAttachment, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return model.StagedAttachment{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return model.StagedAttachment{}, err
	}
	if info.IsDir() {
		return model.StagedAttachment{}, fmt.Errorf("%s is a directory", path)
	}
	if kind == "" {
		kind, err = DetectFileKind(abs)
		if err != nil {
			return model.StagedAttachment{}, err
		}
	}
	return model.StagedAttachment{
		Name:    filepath.Base(abs),
		Kind:    kind,
		Path:    abs,
		Payload: model.FilePayload(abs),
	}, nil
}

// FromCapture builds a staged attachment for an in-memory capture such as a
// microphone recording.
func FromCapture(name string, data []byte, kind model.AttachmentKind) model.StagedAttachment {
	if kind == "" {
		kind = DetectKind(data)
	}
	return model.StagedAttachment{
		Name:    name,
		Kind:    kind,
		Payload: model.BytesPayload(data),
	}
}
