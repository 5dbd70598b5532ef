// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultInterval is the pause between reveal steps.
const DefaultInterval = 20 * time.Millisecond

// =============================================================================
// FRAMES AND SURFACES
// =============================================================================

// Frame is one step of a reveal.
type Frame struct {
	// Step counts from 1.
	Step int
	// Raw is the accumulated markdown so far.
	Raw string
	// Rendered is Raw passed through the markdown renderer.
	Rendered string
}

// Surface displays reveal frames.
type Surface interface {
	Render(Frame)
}

// ScrollAware is implemented by surfaces that know their scroll position.
// Reveal keeps such a surface pinned to the bottom while the user has not
// scrolled away.
type ScrollAware interface {
	AtBottom() bool
	ScrollToBottom()
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(Frame)

// Render implements Surface.
func (f SurfaceFunc) Render(fr Frame) { f(fr) }

// =============================================================================
// RENDERER
// =============================================================================

// Renderer turns a complete response into a paced, incremental reveal.
type Renderer struct {
	md       MarkdownRenderer
	interval time.Duration
	log      *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithInterval sets the pause between steps. Zero disables pacing.
func WithInterval(d time.Duration) Option {
	return func(r *Renderer) {
		if d >= 0 {
			r.interval = d
		}
	}
}

// WithMarkdown sets the markdown renderer.
func WithMarkdown(md MarkdownRenderer) Option {
	return func(r *Renderer) {
		if md != nil {
			r.md = md
		}
	}
}

// WithLogger sets the logger used for render failures.
func WithLogger(log *zap.Logger) Option {
	return func(r *Renderer) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRenderer creates a renderer with a plain markdown renderer and the
// default interval unless overridden.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		md:       Plain{},
		interval: DefaultInterval,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tokens splits text on single spaces. Consecutive spaces yield empty
// tokens so the reveal reproduces the original spacing. Empty text has no
// tokens.
func Tokens(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, " ")
}

// Render renders markdown, falling back to the raw text on failure.
func (r *Renderer) Render(markdown string) string {
	out, err := r.md.Render(markdown)
	if err != nil {
		r.log.Warn("markdown render failed", zap.Error(err))
		return markdown
	}
	return out
}

// Frames lazily yields one frame per token. Each step appends the token and
// a trailing space to the accumulator. Steps after the first wait for the
// configured interval; the sequence ends early when ctx is done.
func (r *Renderer) Frames(ctx context.Context, text string) iter.Seq[Frame] {
	tokens := Tokens(text)

	return func(yield func(Frame) bool) {
		limiter := rate.NewLimiter(rate.Inf, 0)
		if r.interval > 0 {
			limiter = rate.NewLimiter(rate.Every(r.interval), 1)
			// Spend the initial burst so the first wait is a full interval.
			limiter.Allow()
		}

		var acc strings.Builder
		for i, tok := range tokens {
			if ctx.Err() != nil {
				return
			}
			if i > 0 {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
			}

			acc.WriteString(tok)
			acc.WriteByte(' ')
			raw := acc.String()

			if !yield(Frame{Step: i + 1, Raw: raw, Rendered: r.Render(raw)}) {
				return
			}
		}
	}
}

// Reveal drives Frames into surface. It returns ctx.Err() when the reveal
// was cut short by cancellation.
func (r *Renderer) Reveal(ctx context.Context, text string, surface Surface) error {
	scroller, _ := surface.(ScrollAware)

	for frame := range r.Frames(ctx, text) {
		pinned := scroller != nil && scroller.AtBottom()
		surface.Render(frame)
		if pinned {
			scroller.ScrollToBottom()
		}
	}
	return ctx.Err()
}
