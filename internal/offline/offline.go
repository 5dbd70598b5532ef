// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNonLocalhost is returned for a remote backend in offline mode.
	ErrNonLocalhost = errors.New("offline mode: only localhost backends are allowed")

	// ErrInvalidURLScheme is returned for anything but http and https.
	ErrInvalidURLScheme = errors.New("only http and https schemes are allowed")

	// ErrInvalidURL is returned when the URL does not parse or has no host.
	ErrInvalidURL = errors.New("invalid backend URL")
)

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsLocalhost checks if a host string refers to localhost.
// Accepts "localhost" and any loopback IP, with or without a port or
// brackets. The entire 127.0.0.0/8 range counts.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))

	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// ValidateURL checks a backend URL. The scheme is always checked; with
// offline set the host must also be loopback.
func ValidateURL(rawURL string, offline bool) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ErrInvalidURL
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrInvalidURLScheme
	}

	// Userinfo can hide the real host from a casual reader.
	if offline && (parsed.User != nil || !IsLocalhost(parsed.Hostname())) {
		return ErrNonLocalhost
	}
	return nil
}

// StatusBadge returns "[OFFLINE]" when offline, empty string otherwise.
func StatusBadge(offline bool) string {
	if offline {
		return "[OFFLINE]"
	}
	return ""
}
