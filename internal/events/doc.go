// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events provides the typed event surface between the chat core
// and whatever front end renders it.
//
// Core components publish events; front ends subscribe per event type.
// Delivery is synchronous, in subscription order, on the publisher's
// goroutine. Handlers run outside the bus lock, so a handler may publish or
// subscribe without deadlocking.
package events
