// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream reveals a complete answer incrementally.
//
// The backend returns whole answers. Renderer splits an answer on single
// spaces and yields one Frame per token, each carrying the accumulated
// markdown and its glamour rendering, paced by a rate limiter (20ms by
// default). Frames are produced in exact token order with nothing dropped:
// "a b c" yields three frames, the last with Raw "a b c ".
//
// # Key Types
//
//   - Renderer: Frames (iter.Seq) and Reveal (push into a Surface)
//   - Surface: Anything that displays frames; ScrollAware surfaces stay
//     pinned to the bottom while the user has not scrolled away
//   - MarkdownRenderer: glamour TermRenderer or Plain passthrough
//
// # Usage
//
//	md, _ := stream.NewMarkdown(stream.MarkdownOptions{Style: "auto", WordWrap: 80})
//	r := stream.NewRenderer(stream.WithMarkdown(md))
//	for frame := range r.Frames(ctx, answer) {
//	    fmt.Print(frame.Rendered)
//	}
//
// Cancelling ctx stops the reveal after the current frame; Reveal then
// returns ctx.Err().
package stream
