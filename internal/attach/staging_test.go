// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/model"
)

func doc(name string) model.StagedAttachment {
	return model.StagedAttachment{Name: name, Kind: model.KindDocument}
}

func names(items []model.StagedAttachment) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

// =============================================================================
// STAGING TESTS
// =============================================================================

func TestStaging_AddPreservesOrderWithoutDedup(t *testing.T) {
	bus := events.NewBus()
	rec := events.Record(bus)
	s := NewStaging(bus)

	s.Add(doc("a.pdf"))
	s.Add(doc("a.pdf"))
	s.Add(doc("b.pdf"))

	assert.Equal(t, []string{"a.pdf", "a.pdf", "b.pdf"}, names(s.List()))
	assert.Len(t, events.Of[events.AttachmentsChanged](rec), 3)
}

func TestStaging_AddManySingleNotification(t *testing.T) {
	bus := events.NewBus()
	rec := events.Record(bus)
	s := NewStaging(bus)

	s.AddMany([]model.StagedAttachment{doc("a"), doc("b"), doc("c")})

	changed := events.Of[events.AttachmentsChanged](rec)
	require.Len(t, changed, 1)
	assert.Equal(t, []string{"a", "b", "c"}, names(changed[0].Items))

	notices := events.Of[events.Notice](rec)
	require.Len(t, notices, 1)
	assert.Equal(t, "3 files attached", notices[0].Text)
}

func TestStaging_AddManySingleItemNoNotice(t *testing.T) {
	bus := events.NewBus()
	rec := events.Record(bus)
	s := NewStaging(bus)

	s.AddMany([]model.StagedAttachment{doc("a")})
	s.AddMany(nil)

	assert.Len(t, events.Of[events.AttachmentsChanged](rec), 1)
	assert.Empty(t, events.Of[events.Notice](rec))
}

func TestStaging_RemoveOutOfRange(t *testing.T) {
	bus := events.NewBus()
	rec := events.Record(bus)
	s := NewStaging(bus)
	s.AddMany([]model.StagedAttachment{doc("a"), doc("b")})
	before := len(rec.Events())

	for _, idx := range []int{-1, 2, 100} {
		assert.False(t, s.Remove(idx), "Remove(%d)", idx)
	}
	assert.Equal(t, []string{"a", "b"}, names(s.List()))
	assert.Len(t, rec.Events(), before, "no-op removes must not notify")
}

func TestStaging_RemoveMiddle(t *testing.T) {
	s := NewStaging(events.NewBus())
	s.AddMany([]model.StagedAttachment{doc("a"), doc("b"), doc("c")})

	require.True(t, s.Remove(1))
	assert.Equal(t, []string{"a", "c"}, names(s.List()))
}

func TestStaging_ListIsCopy(t *testing.T) {
	s := NewStaging(nil)
	s.Add(doc("a"))

	list := s.List()
	list[0].Name = "mutated"
	assert.Equal(t, "a", s.List()[0].Name)
}

func TestStaging_Clear(t *testing.T) {
	bus := events.NewBus()
	rec := events.Record(bus)
	s := NewStaging(bus)
	s.Add(doc("a"))

	s.Clear()
	assert.Zero(t, s.Len())

	changed := events.Of[events.AttachmentsChanged](rec)
	require.NotEmpty(t, changed)
	assert.Empty(t, changed[len(changed)-1].Items)
}

func TestStaging_Audio(t *testing.T) {
	s := NewStaging(nil)
	s.Add(doc("a.pdf"))
	s.Add(model.StagedAttachment{Name: "no-payload.wav", Kind: model.KindAudio})

	_, ok := s.Audio()
	assert.False(t, ok, "audio without payload is not dispatchable")

	s.Add(FromCapture("clip.wav", []byte("RIFF"), model.KindAudio))
	audio, ok := s.Audio()
	require.True(t, ok)
	assert.Equal(t, "clip.wav", audio.Name)
}

func TestStaging_RemoveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewStaging(nil)
		n := rapid.IntRange(0, 8).Draw(t, "n")
		for i := 0; i < n; i++ {
			s.Add(doc(string(rune('a' + i))))
		}
		idx := rapid.IntRange(-3, 12).Draw(t, "idx")

		removed := s.Remove(idx)
		inRange := idx >= 0 && idx < n
		if removed != inRange {
			t.Fatalf("Remove(%d) with %d items = %v", idx, n, removed)
		}
		want := n
		if inRange {
			want--
		}
		if s.Len() != want {
			t.Fatalf("len = %d, want %d", s.Len(), want)
		}
	})
}

// =============================================================================
// DETECTION TESTS
// =============================================================================

func TestKindForMIME(t *testing.T) {
	tests := map[string]model.AttachmentKind{
		"image/png":       model.KindImage,
		"video/mp4":       model.KindVideo,
		"audio/wav":       model.KindAudio,
		"application/pdf": model.KindDocument,
		"text/plain":      model.KindDocument,
	}
	for mime, want := range tests {
		assert.Equal(t, want, KindForMIME(mime), mime)
	}
}

func TestDetectKind_PNG(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	assert.Equal(t, model.KindImage, DetectKind(png))
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("quarterly notes"), 0o600))

	item, err := FromFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", item.Name)
	assert.Equal(t, model.KindDocument, item.Kind)
	assert.True(t, filepath.IsAbs(item.Path))

	data, err := item.ReadPayload()
	require.NoError(t, err)
	assert.Equal(t, "quarterly notes", string(data))
}

func TestFromFile_Directory(t *testing.T) {
	_, err := FromFile(t.TempDir(), "")
	assert.Error(t, err)
}
