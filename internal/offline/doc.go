// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline guards air-gapped deployments.
//
// With backend.offline set, configuration validation rejects any backend
// URL that is not loopback, so questions and attachments never leave the
// machine. Scheme checks apply in both modes.
//
// # Usage
//
//	if err := offline.ValidateURL(cfg.Backend.URL, cfg.Backend.Offline); err != nil {
//		return err
//	}
package offline
