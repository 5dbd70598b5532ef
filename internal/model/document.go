// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// Document is an entry in the backend's indexed document set.
type Document struct {
	Name    string    `json:"name"`
	Path    string    `json:"path,omitempty"`
	Type    string    `json:"type,omitempty"`
	Size    int64     `json:"size,omitempty"`
	AddedAt time.Time `json:"added_at,omitempty"`
}

// Source returns the document as a citation.
func (d Document) Source() Source {
	return Source{Name: d.Name, Path: d.Path}
}
