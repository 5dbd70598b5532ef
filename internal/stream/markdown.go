// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Glamour style names accepted by MarkdownOptions.Style.
const (
	StyleAuto  = "auto"
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
	StylePlain = "plain"
)

// MarkdownRenderer turns markdown into terminal output.
type MarkdownRenderer interface {
	Render(markdown string) (string, error)
}

// MarkdownOptions configures NewMarkdown.
type MarkdownOptions struct {
	// Style is a glamour standard style, "auto" or "plain".
	Style string
	// WordWrap is the wrap column; zero disables wrapping.
	WordWrap int
}

// NewMarkdown builds a glamour-backed renderer. "auto" resolves to the dark
// or light style from the terminal background, or notty when output is not
// a color terminal. "plain" returns the text untouched. If glamour cannot
// be initialized the plain renderer is returned along with the error.
func NewMarkdown(opts MarkdownOptions) (MarkdownRenderer, error) {
	style := strings.ToLower(strings.TrimSpace(opts.Style))
	if style == StylePlain {
		return Plain{}, nil
	}
	if style == "" || style == StyleAuto {
		style = detectStyle()
	}

	options := []glamour.TermRendererOption{
		glamour.WithStandardStyle(style),
		glamour.WithEmoji(),
	}
	if opts.WordWrap > 0 {
		options = append(options, glamour.WithWordWrap(opts.WordWrap))
	}

	tr, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return Plain{}, err
	}
	return &glamourRenderer{tr: tr}, nil
}

func detectStyle() string {
	if termenv.EnvColorProfile() == termenv.Ascii {
		return StyleNoTTY
	}
	if termenv.HasDarkBackground() {
		return StyleDark
	}
	return StyleLight
}

// glamourRenderer serializes access to a TermRenderer, which keeps
// internal buffers between calls.
type glamourRenderer struct {
	mu sync.Mutex
	tr *glamour.TermRenderer
}

func (g *glamourRenderer) Render(markdown string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out, err := g.tr.Render(markdown)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// Plain passes markdown through unchanged.
type Plain struct{}

// Render implements MarkdownRenderer.
func (Plain) Render(markdown string) (string, error) {
	return markdown, nil
}
