// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lifecycle

// State is the phase of the single outstanding request.
type State int

const (
	// Idle accepts a new send.
	Idle State = iota
	// Dispatching has taken the lock and is preparing the backend call.
	Dispatching
	// Awaiting is blocked on the backend.
	Awaiting
	// Rendering is revealing a successful answer.
	Rendering
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dispatching:
		return "dispatching"
	case Awaiting:
		return "awaiting"
	case Rendering:
		return "rendering"
	default:
		return "unknown"
	}
}

// Locked reports whether a request is outstanding.
func (s State) Locked() bool {
	return s != Idle
}
