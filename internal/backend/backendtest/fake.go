// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backendtest

import (
	"context"
	"sync"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/model"
)

// Call records one backend invocation.
type Call struct {
	Method   string
	Message  string
	FileName string
	Payload  []byte
	Kind     model.AttachmentKind
	Path     string
}

// Fake is a scriptable Backend. Zero value answers every query with an
// empty answer.
type Fake struct {
	mu    sync.Mutex
	calls []Call

	// Answer is returned by both query methods.
	Answer backend.Answer
	// Err, when set, is returned by both query methods.
	Err error
	// Gate, when set, blocks queries until it is closed or ctx ends.
	Gate chan struct{}
	// Started is signalled when a query begins waiting on Gate.
	Started chan struct{}

	Upload    backend.UploadResult
	UploadErr error
	Documents []model.Document
	Open      backend.OpenResult
	OpenErr   error
}

var _ backend.Backend = (*Fake)(nil)

func (f *Fake) record(c Call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded calls to method.
func (f *Fake) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) answer(ctx context.Context) (backend.Answer, error) {
	if f.Gate != nil {
		if f.Started != nil {
			select {
			case f.Started <- struct{}{}:
			default:
			}
		}
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return backend.Answer{}, ctx.Err()
		}
	}
	if f.Err != nil {
		return backend.Answer{}, f.Err
	}
	return f.Answer, nil
}

// SendTextQuery implements backend.Backend.
func (f *Fake) SendTextQuery(ctx context.Context, message string) (backend.Answer, error) {
	f.record(Call{Method: "SendTextQuery", Message: message})
	return f.answer(ctx)
}

// SendAudioQuery implements backend.Backend.
func (f *Fake) SendAudioQuery(ctx context.Context, payload []byte, fileName string) (backend.Answer, error) {
	f.record(Call{Method: "SendAudioQuery", Payload: payload, FileName: fileName})
	return f.answer(ctx)
}

// UploadAttachments implements backend.Backend.
func (f *Fake) UploadAttachments(ctx context.Context, kind model.AttachmentKind) (backend.UploadResult, error) {
	f.record(Call{Method: "UploadAttachments", Kind: kind})
	return f.Upload, f.UploadErr
}

// ListDocuments implements backend.Backend.
func (f *Fake) ListDocuments(ctx context.Context) ([]model.Document, error) {
	f.record(Call{Method: "ListDocuments"})
	return f.Documents, nil
}

// OpenExternally implements backend.Backend.
func (f *Fake) OpenExternally(ctx context.Context, absPath string) (backend.OpenResult, error) {
	f.record(Call{Method: "OpenExternally", Path: absPath})
	return f.Open, f.OpenErr
}
