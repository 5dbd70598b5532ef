// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/model"
)

type driverCase struct {
	name string
	open func(t *testing.T) backend.History
}

func drivers() []driverCase {
	return []driverCase{
		{"sqlite", func(t *testing.T) backend.History {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}},
		{"json", func(t *testing.T) backend.History {
			s, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			return s
		}},
		{"memory", func(t *testing.T) backend.History {
			return NewMemoryStore()
		}},
	}
}

func sampleSession(first string) *model.Session {
	s := model.NewSession()
	s.Append(model.NewUserMessage(first))
	s.Append(model.NewAssistantMessage("**answer**", []model.Source{
		{Name: "report.pdf", Path: "/docs/report.pdf"},
		{Name: "notes"},
	}))
	return s
}

// =============================================================================
// DRIVER CONTRACT TESTS
// =============================================================================

func TestHistory_SaveAndLoad(t *testing.T) {
	for _, d := range drivers() {
		t.Run(d.name, func(t *testing.T) {
			ctx := context.Background()
			store := d.open(t)
			sess := sampleSession("Revenue Q4")

			require.NoError(t, store.SaveSession(ctx, sess))

			got, err := store.LoadSession(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, sess.ID, got.ID)
			assert.Equal(t, "Revenue Q4", got.Title)
			require.Len(t, got.Messages, 2)
			assert.True(t, got.Messages[0].IsUser)
			assert.Equal(t, "**answer**", got.Messages[1].Content)
			assert.Equal(t, sess.Messages[1].Sources, got.Messages[1].Sources)
			assert.True(t, sess.CreatedAt.Equal(got.CreatedAt))
		})
	}
}

func TestHistory_SaveOverwrites(t *testing.T) {
	for _, d := range drivers() {
		t.Run(d.name, func(t *testing.T) {
			ctx := context.Background()
			store := d.open(t)
			sess := sampleSession("hello")
			require.NoError(t, store.SaveSession(ctx, sess))

			sess.Append(model.NewUserMessage("follow-up"))
			require.NoError(t, store.SaveSession(ctx, sess))

			got, err := store.LoadSession(ctx, sess.ID)
			require.NoError(t, err)
			assert.Len(t, got.Messages, 3)

			all, err := store.ListSessions(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestHistory_LoadNotFound(t *testing.T) {
	for _, d := range drivers() {
		t.Run(d.name, func(t *testing.T) {
			_, err := d.open(t).LoadSession(context.Background(), "missing")
			assert.True(t, errors.Is(err, backend.ErrSessionNotFound), "got %v", err)
		})
	}
}

func TestHistory_ListOldestFirst(t *testing.T) {
	for _, d := range drivers() {
		t.Run(d.name, func(t *testing.T) {
			ctx := context.Background()
			store := d.open(t)

			first := sampleSession("Revenue Q4")
			second := sampleSession("Shopping list")
			second.CreatedAt = first.CreatedAt.Add(time.Second)
			require.NoError(t, store.SaveSession(ctx, first))
			require.NoError(t, store.SaveSession(ctx, second))

			// Re-saving the older session must not move it.
			first.Append(model.NewUserMessage("more"))
			require.NoError(t, store.SaveSession(ctx, first))

			all, err := store.ListSessions(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, first.ID, all[0].ID)
			assert.Equal(t, second.ID, all[1].ID)
		})
	}
}

func TestHistory_Delete(t *testing.T) {
	for _, d := range drivers() {
		t.Run(d.name, func(t *testing.T) {
			ctx := context.Background()
			store := d.open(t)
			sess := sampleSession("bye")
			require.NoError(t, store.SaveSession(ctx, sess))

			require.NoError(t, store.DeleteSession(ctx, sess.ID))

			_, err := store.LoadSession(ctx, sess.ID)
			assert.ErrorIs(t, err, backend.ErrSessionNotFound)
			assert.ErrorIs(t, store.DeleteSession(ctx, sess.ID), backend.ErrSessionNotFound)

			all, err := store.ListSessions(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestHistory_EmptyListIsNotNil(t *testing.T) {
	for _, d := range drivers() {
		t.Run(d.name, func(t *testing.T) {
			all, err := d.open(t).ListSessions(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, all)
			assert.Empty(t, all)
		})
	}
}

func TestHistory_RoundTripProperty(t *testing.T) {
	store := NewMemoryStore()
	sqlite, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer sqlite.Close()

	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		sess := model.NewSession()
		n := rapid.IntRange(0, 10).Draw(t, "messages")
		for i := 0; i < n; i++ {
			content := rapid.StringMatching(`[a-zA-Z0-9 ?.,éü世]{0,40}`).Draw(t, "content")
			if rapid.Bool().Draw(t, "user") {
				sess.Append(model.NewUserMessage(content))
			} else {
				sess.Append(model.NewAssistantMessage(content, nil))
			}
		}

		for _, h := range []backend.History{store, sqlite} {
			if err := h.SaveSession(ctx, sess); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := h.LoadSession(ctx, sess.ID)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(got.Messages) != n {
				t.Fatalf("loaded %d messages, want %d", len(got.Messages), n)
			}
			for i := range got.Messages {
				if got.Messages[i].Content != sess.Messages[i].Content {
					t.Fatalf("message %d content mismatch", i)
				}
			}
			if got.Title != sess.Title {
				t.Fatalf("title %q, want %q", got.Title, sess.Title)
			}
		}
	})
}

// =============================================================================
// FILE STORE TESTS
// =============================================================================

func TestFileStore_LegacyBareStringSources(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	legacy := `{"id":"legacy","title":"Old","messages":[{"is_user":false,"content":"A","sources":["report.pdf","/abs/b.pdf"]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.json"), []byte(legacy), 0o644))

	sess, err := store.LoadSession(context.Background(), "legacy")
	require.NoError(t, err)
	require.Len(t, sess.Messages[0].Sources, 2)
	assert.Equal(t, model.Source{Name: "report.pdf"}, sess.Messages[0].Sources[0])
	assert.Equal(t, model.Source{Name: "b.pdf", Path: "/abs/b.pdf"}, sess.Messages[0].Sources[1])
}

func TestFileStore_FilesArePrivate(t *testing.T) {
	if os.PathSeparator != '/' {
		t.Skip("permission bits are not enforced on this platform")
	}
	dir := filepath.Join(t.TempDir(), "history")
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	sess := model.NewSession()
	sess.Append(model.NewUserMessage("salary figures"))
	require.NoError(t, store.SaveSession(context.Background(), sess))

	info, err := os.Stat(filepath.Join(dir, sess.ID+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	info, err = os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestFileStore_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveSession(context.Background(), sampleSession("ok")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))

	all, err := store.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	bad := model.NewSession()
	bad.ID = "../escape"
	assert.ErrorIs(t, store.SaveSession(context.Background(), bad), ErrInvalidID)

	_, err = store.LoadSession(context.Background(), "../escape")
	assert.ErrorIs(t, err, backend.ErrSessionNotFound)
}

func TestFileStore_EnforceLimit(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	store.MaxSessions = 2
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		s := sampleSession(strings.Repeat("x", i+1))
		s.UpdatedAt = time.Now().Add(time.Duration(i) * time.Second)
		require.NoError(t, store.SaveSession(ctx, s))
		ids = append(ids, s.ID)
	}

	all, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	_, err = store.LoadSession(ctx, ids[0])
	assert.ErrorIs(t, err, backend.ErrSessionNotFound)
}

// =============================================================================
// OPEN / FORMAT TESTS
// =============================================================================

func TestOpen_Drivers(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Driver: "sqlite", Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(dir, "history.db"))

	s, err = Open(Options{Driver: "json", Path: filepath.Join(dir, "sessions")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(Options{Driver: "memory"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(Options{Driver: "postgres"})
	assert.Error(t, err)
}

func TestStoreError_Format(t *testing.T) {
	err := notFound("load", "abc")
	assert.Equal(t, "storage load abc: session not found", err.Error())
	assert.Equal(t, "storage list: boom", wrap("list", "", errors.New("boom")).Error())
	assert.Nil(t, wrap("save", "x", nil))
}

func TestFormatSessionList(t *testing.T) {
	assert.Equal(t, "No chat history.\n", FormatSessionList(nil))

	out := FormatSessionList([]model.Session{*sampleSession("Revenue Q4")})
	assert.Contains(t, out, "Revenue Q4")
	assert.Contains(t, out, "Title")
}
