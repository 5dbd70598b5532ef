// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lifecycle governs the single outstanding query.
//
// A run moves Idle → Dispatching → Awaiting → Rendering → Idle. The lock
// is taken atomically, so a second Send during a run returns ErrBusy
// without reaching the backend. Entering the lock publishes
// ControlsChanged{Enabled: false}; leaving it, on every path, publishes
// ControlsChanged{Enabled: true, Focus: true}.
//
// Failed and cancelled runs append a transient chat message that is never
// written to history. Successful runs reveal the answer, show its sources
// and then commit it.
package lifecycle
