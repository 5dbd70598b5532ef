// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"io"
	"strings"
	"sync"

	"github.com/jeranaias/ragdesk/internal/events"
)

// EventSurface publishes every frame as events.RevealFrame.
type EventSurface struct {
	Bus *events.Bus
}

// Render implements Surface.
func (s EventSurface) Render(f Frame) {
	s.Bus.Publish(events.RevealFrame{Step: f.Step, Raw: f.Raw, Rendered: f.Rendered})
}

// DeltaWriter writes only the newly revealed raw text of each frame, which
// gives a typing effect on a line-mode terminal.
type DeltaWriter struct {
	mu      sync.Mutex
	w       io.Writer
	written string
}

// NewDeltaWriter creates a DeltaWriter over w.
func NewDeltaWriter(w io.Writer) *DeltaWriter {
	return &DeltaWriter{w: w}
}

// Render implements Surface.
func (d *DeltaWriter) Render(f Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if strings.HasPrefix(f.Raw, d.written) {
		io.WriteString(d.w, f.Raw[len(d.written):])
	} else {
		io.WriteString(d.w, "\n"+f.Raw)
	}
	d.written = f.Raw
}

// Reset forgets what has been written so the next reveal starts fresh.
func (d *DeltaWriter) Reset() {
	d.mu.Lock()
	d.written = ""
	d.mu.Unlock()
}

// Recorder collects frames.
type Recorder struct {
	mu     sync.Mutex
	frames []Frame
}

// Render implements Surface.
func (r *Recorder) Render(f Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

// Frames returns a copy of the recorded frames.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Frame, len(r.frames))
	copy(out, r.frames)
	return out
}
