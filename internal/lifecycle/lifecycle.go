// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/stream"
)

// Messages shown in the chat for runs that produced no answer. Neither is
// written to history.
const (
	FailureMessage   = "⚠️ Could not reach the assistant. Check that the backend is running and try again."
	RejectedMessage  = "⚠️ The assistant could not answer: "
	CancelledMessage = "Request cancelled."
	audioPrefix      = "🎤 "
)

var (
	// ErrBusy is returned by Send while another request is outstanding.
	ErrBusy = errors.New("a request is already in progress")

	// ErrNothingToSend is returned by Send when there is no text and no
	// staged attachment.
	ErrNothingToSend = errors.New("nothing to send")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Conversation receives the messages a run produces.
type Conversation interface {
	AppendMessage(ctx context.Context, isUser bool, content string, sources []model.Source, persist bool) model.Message
}

// Stager is the part of attachment staging a run consumes.
type Stager interface {
	Len() int
	Audio() (model.StagedAttachment, bool)
	Clear()
}

// Revealer paces an answer onto a surface.
type Revealer interface {
	Reveal(ctx context.Context, text string, surface stream.Surface) error
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Lifecycle runs at most one query at a time:
// lock, dispatch, await, render, unlock.
type Lifecycle struct {
	mu    sync.Mutex
	state State

	runs canceler

	backend  backend.Backend
	conv     Conversation
	staging  Stager
	renderer Revealer
	surface  stream.Surface
	bus      *events.Bus
	log      *zap.Logger
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithSurface sets where answers are revealed. The default publishes
// events.RevealFrame on the bus.
func WithSurface(s stream.Surface) Option {
	return func(l *Lifecycle) {
		if s != nil {
			l.surface = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Lifecycle) {
		if log != nil {
			l.log = log.Named("lifecycle")
		}
	}
}

// New creates an idle lifecycle.
func New(b backend.Backend, conv Conversation, staging Stager, renderer Revealer, bus *events.Bus, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		backend:  b,
		conv:     conv,
		staging:  staging,
		renderer: renderer,
		surface:  stream.EventSurface{Bus: bus},
		bus:      bus,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Cancel aborts the in-flight run, if any, and reports whether there was
// one. A run cancelled while awaiting ends with CancelledMessage; a run
// cancelled while rendering skips the rest of the reveal and still commits
// the answer.
func (l *Lifecycle) Cancel() bool {
	return l.runs.cancel()
}

// =============================================================================
// SEND
// =============================================================================

// Send dispatches one query built from input and the staged attachments.
//
// A staged audio attachment with a payload turns the run into an audio
// query; otherwise the trimmed input is sent as text. Send returns
// ErrNothingToSend when there is nothing to dispatch and ErrBusy while
// another run holds the lock; neither changes any state. Backend failures
// are reported in the chat as a transient message and also returned.
// Controls are re-enabled on every exit path, including panics.
func (l *Lifecycle) Send(ctx context.Context, input string) (err error) {
	text := strings.TrimSpace(input)
	audio, hasAudio := l.staging.Audio()
	if text == "" && !hasAudio && l.staging.Len() == 0 {
		return ErrNothingToSend
	}

	runCtx, ok := l.acquire(ctx)
	if !ok {
		return ErrBusy
	}

	cleared := false
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("send panicked", zap.Any("panic", r), zap.Stack("stack"))
			l.conv.AppendMessage(ctx, false, FailureMessage, nil, false)
			err = fmt.Errorf("send: panic: %v", r)
		}
		if !cleared {
			l.staging.Clear()
		}
		l.release()
	}()

	var ans backend.Answer
	if hasAudio {
		payload, rerr := audio.ReadPayload()
		if rerr != nil {
			return l.fail(ctx, fmt.Errorf("read %s: %w", audio.Name, rerr))
		}
		userText := text
		if userText == "" {
			userText = audioPrefix + audio.Name
		}
		l.conv.AppendMessage(ctx, true, userText, nil, true)

		l.setState(Awaiting)
		l.log.Debug("audio query", zap.String("file", audio.Name), zap.Int("bytes", len(payload)))
		ans, err = l.backend.SendAudioQuery(runCtx, payload, audio.Name)
	} else {
		if text != "" {
			l.conv.AppendMessage(ctx, true, text, nil, true)
		}

		l.setState(Awaiting)
		l.log.Debug("text query", zap.Int("runes", len([]rune(text))))
		ans, err = l.backend.SendTextQuery(runCtx, text)
	}
	if err != nil {
		return l.fail(ctx, err)
	}

	l.staging.Clear()
	cleared = true

	l.setState(Rendering)
	if rerr := l.renderer.Reveal(runCtx, ans.Text, l.surface); rerr != nil {
		l.log.Debug("reveal cut short", zap.Error(rerr))
	}
	l.bus.Publish(events.SourcesShown{Sources: ans.Sources})
	l.conv.AppendMessage(ctx, false, ans.Text, ans.Sources, true)
	return nil
}

// fail reports a run that produced no answer.
func (l *Lifecycle) fail(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, backend.ErrCanceled) || l.runs.cancelled() {
		l.log.Info("request cancelled")
		l.conv.AppendMessage(ctx, false, CancelledMessage, nil, false)
		return backend.ErrCanceled
	}
	l.log.Warn("request failed", zap.Error(err), zap.Bool("connectivity", backend.IsConnectivity(err)))
	l.conv.AppendMessage(ctx, false, failureText(err), nil, false)
	return err
}

// failureText picks the chat message for a failed run. Errors the backend
// answered deliberately carry its reason; everything else reads as an
// unreachable backend.
func failureText(err error) string {
	var apiErr *backend.APIError
	if backend.IsConnectivity(err) || !errors.As(err, &apiErr) {
		return FailureMessage
	}
	reason := apiErr.Message
	if reason == "" {
		reason = fmt.Sprintf("HTTP %d", apiErr.Status)
	}
	return RejectedMessage + reason
}

// =============================================================================
// LOCKING
// =============================================================================

func (l *Lifecycle) acquire(ctx context.Context) (context.Context, bool) {
	l.mu.Lock()
	if l.state.Locked() {
		l.mu.Unlock()
		return nil, false
	}
	l.state = Dispatching
	runCtx, cancel := context.WithCancel(ctx)
	l.runs.set(cancel)
	l.mu.Unlock()

	l.bus.Publish(events.StateChanged{From: Idle.String(), To: Dispatching.String()})
	l.bus.Publish(events.ControlsChanged{Enabled: false})
	return runCtx, true
}

func (l *Lifecycle) release() {
	l.runs.clear()

	l.mu.Lock()
	from := l.state
	l.state = Idle
	l.mu.Unlock()

	l.bus.Publish(events.StateChanged{From: from.String(), To: Idle.String()})
	l.bus.Publish(events.ControlsChanged{Enabled: true, Focus: true})
}

func (l *Lifecycle) setState(s State) {
	l.mu.Lock()
	from := l.state
	l.state = s
	l.mu.Unlock()

	l.bus.Publish(events.StateChanged{From: from.String(), To: s.String()})
}

// =============================================================================
// UPLOADS
// =============================================================================

// Upload asks the backend to ingest attachments of kind. A dismissed
// upload is silent. Success publishes a notice and DocumentsChanged.
func (l *Lifecycle) Upload(ctx context.Context, kind model.AttachmentKind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown attachment kind %q", kind)
	}

	res, err := l.backend.UploadAttachments(ctx, kind)
	if errors.Is(err, backend.ErrCanceled) || errors.Is(err, context.Canceled) || (err == nil && res.Canceled()) {
		l.log.Debug("upload dismissed", zap.String("kind", string(kind)))
		return nil
	}
	if err != nil {
		l.log.Warn("upload failed", zap.String("kind", string(kind)), zap.Error(err))
		l.bus.Publish(events.Error(fmt.Sprintf("Upload failed: %v", err)))
		return err
	}

	text := res.Message
	if text == "" {
		text = fmt.Sprintf("%d %s file(s) uploaded", len(res.Files), kind)
	}
	l.bus.Publish(events.Success(text))
	l.bus.Publish(events.DocumentsChanged{Reason: "upload", Paths: res.Files})
	return nil
}
