// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jeranaias/ragdesk/internal/attach"
	"github.com/jeranaias/ragdesk/internal/events"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/storage"
)

type fixture struct {
	store   *Store
	history *storage.MemoryStore
	staging *attach.Staging
	rec     *events.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	bus := events.NewBus()
	history := storage.NewMemoryStore()
	staging := attach.NewStaging(bus)
	return fixture{
		store:   NewStore(history, staging, bus, nil),
		history: history,
		staging: staging,
		rec:     events.Record(bus),
	}
}

// =============================================================================
// START NEW
// =============================================================================

func TestStore_StartNew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AppendMessage(ctx, true, "hello", nil, true)
	f.staging.Add(model.StagedAttachment{Name: "a.pdf", Kind: model.KindDocument})
	oldID := f.store.ID()

	f.store.StartNew(ctx)

	cur := f.store.Current()
	assert.NotEqual(t, oldID, cur.ID)
	assert.Equal(t, model.DefaultTitle, cur.Title)
	assert.Empty(t, cur.Messages)
	assert.Zero(t, f.staging.Len())

	resets := events.Of[events.SessionReset](f.rec)
	require.Len(t, resets, 1)
	assert.Equal(t, cur.ID, resets[0].Session.ID)
}

// =============================================================================
// APPEND
// =============================================================================

func TestStore_AppendDerivesTitleAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.AppendMessage(ctx, true, "What were the revenue drivers in Q4 2024?", nil, true)

	cur := f.store.Current()
	assert.Equal(t, "What were the revenue drivers …", cur.Title)

	stored, err := f.history.LoadSession(ctx, cur.ID)
	require.NoError(t, err)
	assert.Equal(t, cur.Title, stored.Title)
	assert.Len(t, stored.Messages, 1)

	assert.Len(t, events.Of[events.HistoryChanged](f.rec), 1)
	appended := events.Of[events.MessageAppended](f.rec)
	require.Len(t, appended, 1)
	assert.True(t, appended[0].Persisted)
	assert.False(t, appended[0].Replay)
}

func TestStore_TransientMessageNotPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.AppendMessage(ctx, true, "q", nil, true)
	f.store.AppendMessage(ctx, false, "Could not reach the server.", nil, false)
	f.store.AppendMessage(ctx, true, "retry", nil, true)

	assert.Equal(t, 3, f.store.Current().MessageCount())

	stored, err := f.history.LoadSession(ctx, f.store.ID())
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, "retry", stored.Messages[1].Content)
	assert.Equal(t, 2, f.history.Saves())
}

func TestStore_TitleAfterTransientFirstMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.AppendMessage(ctx, false, "could not reach backend", nil, false)
	f.store.AppendMessage(ctx, true, "hello world", nil, true)

	stored, err := f.history.LoadSession(ctx, f.store.ID())
	require.NoError(t, err)
	require.Len(t, stored.Messages, 1)
	assert.True(t, stored.Messages[0].IsUser)
	assert.Equal(t, "hello world", stored.Title)
	assert.Equal(t, "hello world", f.store.Current().Title)
}

func TestStore_PersistFailureSwallowed(t *testing.T) {
	f := newFixture(t)
	f.history.SaveErr = errors.New("disk full")

	msg := f.store.AppendMessage(context.Background(), true, "hello", nil, true)

	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, 1, f.store.Current().MessageCount())
	assert.Empty(t, events.Of[events.HistoryChanged](f.rec))
	appended := events.Of[events.MessageAppended](f.rec)
	require.Len(t, appended, 1)
	assert.False(t, appended[0].Persisted)
}

func TestStore_AssistantSourcesCopied(t *testing.T) {
	f := newFixture(t)
	sources := []model.Source{{Name: "a.pdf", Path: "/a.pdf"}}

	f.store.AppendMessage(context.Background(), false, "answer", sources, true)
	sources[0].Name = "mutated"

	assert.Equal(t, "a.pdf", f.store.Current().Messages[0].Sources[0].Name)
}

func TestStore_ConcurrentAppendsAllPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.store.AppendMessage(ctx, true, "msg", nil, true)
		}()
	}
	wg.Wait()

	stored, err := f.history.LoadSession(ctx, f.store.ID())
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 16)
}

func TestStore_PersistedCountProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bus := events.NewBus()
		history := storage.NewMemoryStore()
		store := NewStore(history, attach.NewStaging(bus), bus, nil)
		ctx := context.Background()

		transient := 0
		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			persist := rapid.Bool().Draw(t, "persist")
			isUser := rapid.Bool().Draw(t, "user")
			store.AppendMessage(ctx, isUser, rapid.String().Draw(t, "content"), nil, persist)
			if !persist {
				transient++
				continue
			}

			stored, err := history.LoadSession(ctx, store.ID())
			if err != nil {
				t.Fatalf("load after persist: %v", err)
			}
			inMemory := store.Current().MessageCount() - transient
			if stored.MessageCount() != inMemory {
				t.Fatalf("persisted %d messages, in memory %d", stored.MessageCount(), inMemory)
			}
		}
	})
}

// =============================================================================
// LOAD
// =============================================================================

func TestStore_LoadReplaysWithoutPersisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved := model.NewSession()
	saved.Append(model.NewAssistantMessage("greeting", nil))
	saved.Append(model.NewUserMessage("a question that is much longer than thirty runes"))
	saved.Title = "Custom"
	require.NoError(t, f.history.SaveSession(ctx, saved))
	savesBefore := f.history.Saves()

	found, err := f.store.Load(ctx, saved.ID)
	require.NoError(t, err)
	require.True(t, found)

	cur := f.store.Current()
	assert.Equal(t, saved.ID, cur.ID)
	assert.Equal(t, "Custom", cur.Title, "replay must not derive a title")
	assert.Len(t, cur.Messages, 2)
	assert.Equal(t, savesBefore, f.history.Saves())

	replayed := events.Of[events.MessageAppended](f.rec)
	require.Len(t, replayed, 2)
	for _, ev := range replayed {
		assert.True(t, ev.Replay)
	}
	assert.Len(t, events.Of[events.SessionLoaded](f.rec), 1)
}

func TestStore_LoadNotFoundIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AppendMessage(ctx, true, "keep me", nil, false)
	before := f.store.Current()
	eventsBefore := len(f.rec.Events())

	found, err := f.store.Load(ctx, "does-not-exist")

	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, before.ID, f.store.Current().ID)
	assert.Equal(t, 1, f.store.Current().MessageCount())
	assert.Len(t, f.rec.Events(), eventsBefore)
}

func TestStore_CurrentIsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.store.AppendMessage(context.Background(), true, "hi", nil, false)

	snap := f.store.Current()
	snap.Messages[0].Content = "changed"
	snap.Title = "changed"

	assert.Equal(t, "hi", f.store.Current().Messages[0].Content)
	assert.Equal(t, "hi", f.store.Current().Title)
}
