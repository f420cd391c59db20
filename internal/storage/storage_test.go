// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
)

func openStore(t *testing.T) *TranscriptStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "transcripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// clock returns a deterministic, strictly increasing time source.
func clock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func save(t *testing.T, s *TranscriptStore, sessionID, q, a string, cat model.LawCategory) *Transcript {
	t.Helper()
	tr := &Transcript{
		SessionID: sessionID,
		Category:  cat,
		Question:  q,
		Answer:    a,
		Usage:     model.TokenUsage{QueryTokens: 3, PromptTokens: 10, ResponseTokens: 5, TotalTokens: 15},
		Elapsed:   "0.50초",
	}
	require.NoError(t, s.Save(context.Background(), tr))
	return tr
}

// =============================================================================
// STORE TESTS
// =============================================================================

func TestOpen_CreatesDirectory(t *testing.T) {
	store := openStore(t)
	assert.FileExists(t, store.Path())
	require.NoError(t, store.Ping(context.Background()))
}

func TestTranscriptStore_SaveAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	tr := save(t, store, "s1", "정당방위 요건은?", "형법 제21조...", model.CriminalLaw)
	assert.NotEmpty(t, tr.ID)
	assert.False(t, tr.CreatedAt.IsZero())

	got, err := store.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, model.CriminalLaw, got.Category)
	assert.Equal(t, "정당방위 요건은?", got.Question)
	assert.Equal(t, tr.Usage, got.Usage)
	assert.Equal(t, "0.50초", got.Elapsed)
	assert.Equal(t, tr.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())

	_, err = store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrTranscriptNotFound))
}

func TestTranscriptStore_ListKeepsOrder(t *testing.T) {
	store := openStore(t)
	store.now = clock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	save(t, store, "s1", "q1", "a1", model.CivilLaw)
	save(t, store, "s2", "other", "x", model.CivilLaw)
	save(t, store, "s1", "q2", "a2", model.RoadTrafficAct)

	list, err := store.List(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "q1", list[0].Question)
	assert.Equal(t, "q2", list[1].Question)
	assert.Equal(t, model.RoadTrafficAct, list[1].Category)

	hist, err := store.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []model.ChatTurn{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}}, hist)

	empty, err := store.List(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTranscriptStore_Sessions(t *testing.T) {
	store := openStore(t)
	store.now = clock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	save(t, store, "older", "first question", "a", model.CriminalLaw)
	save(t, store, "newer", "newest first", "a", model.CivilLaw)
	save(t, store, "newer", "second", "a", model.CivilLaw)

	sums, err := store.Sessions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, sums, 2)

	assert.Equal(t, "newer", sums[0].SessionID)
	assert.Equal(t, 2, sums[0].Turns)
	assert.Equal(t, 30, sums[0].TotalTokens)
	assert.Equal(t, "newest first", sums[0].Preview)
	assert.True(t, sums[0].LastAt.After(sums[0].FirstAt))
	assert.Equal(t, "older", sums[1].SessionID)

	limited, err := store.Sessions(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestTranscriptStore_ResolveSession(t *testing.T) {
	store := openStore(t)
	store.now = clock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := store.ResolveSession(ctx, "")
	assert.True(t, errors.Is(err, ErrTranscriptNotFound))

	save(t, store, "abc123", "q", "a", model.CriminalLaw)
	save(t, store, "def456", "q", "a", model.CriminalLaw)

	id, err := store.ResolveSession(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "def456", id)

	id, err = store.ResolveSession(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	_, err = store.ResolveSession(ctx, "zzz")
	assert.True(t, errors.Is(err, ErrTranscriptNotFound))
}

func TestTranscriptStore_Search(t *testing.T) {
	store := openStore(t)
	save(t, store, "s1", "임대차 보증금 반환", "민법 제618조", model.CivilLaw)
	save(t, store, "s1", "100% 과실", "상계", model.CivilLaw)
	save(t, store, "s1", "불심검문", "경찰관 직무집행법 제3조", model.PoliceDutiesAct)

	got, err := store.Search(context.Background(), "보증금", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "임대차 보증금 반환", got[0].Question)

	got, err = store.Search(context.Background(), "직무집행", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.PoliceDutiesAct, got[0].Category)

	// LIKE wildcards are matched literally.
	got, err = store.Search(context.Background(), "0%", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100% 과실", got[0].Question)
}

func TestTranscriptStore_Delete(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	old := &Transcript{SessionID: "s1", Category: model.CriminalLaw, Question: "old", Answer: "a", CreatedAt: base.Add(-48 * time.Hour)}
	require.NoError(t, store.Save(ctx, old))
	save(t, store, "s1", "new", "a", model.CriminalLaw)
	save(t, store, "s2", "other", "a", model.CriminalLaw)

	n, err := store.DeleteBefore(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.DeleteSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTranscriptStore_Closed(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	err = store.Save(context.Background(), &Transcript{})
	assert.True(t, errors.Is(err, ErrStoreClosed))
	_, err = store.Sessions(context.Background(), 0)
	assert.True(t, errors.Is(err, ErrStoreClosed))
}

// =============================================================================
// RECORDER TESTS
// =============================================================================

func TestRecorder_RecordsCompletedTurnsOnly(t *testing.T) {
	store := openStore(t)
	rec := NewRecorder(store, "sess", nil)

	idle := session.NewState(model.RoadTrafficAct)
	rec.Observe(idle)

	submitting := idle
	submitting.Status = session.StatusSubmitting
	submitting.PendingQuestion = "음주운전 처벌 기준은?"
	rec.Observe(submitting)

	// A category change while in flight does not relabel the pending turn.
	moved := submitting
	moved.Category = model.CivilLaw
	rec.Observe(moved)

	done := moved
	done.Status = session.StatusSuccess
	done.LastAnswer = "도로교통법 제44조..."
	done.LastElapsed = "1.02초"
	done.LastUsage = model.TokenUsage{QueryTokens: 4, PromptTokens: 80, ResponseTokens: 20, TotalTokens: 100}
	rec.Observe(done)

	// Re-publishing the same success state does not duplicate the row.
	rec.Observe(done)

	failed := done
	failed.Status = session.StatusSubmitting
	rec.Observe(failed)
	failed.Status = session.StatusError
	rec.Observe(failed)
	rec.Close()

	assert.Equal(t, 1, rec.Saved())
	assert.NoError(t, rec.Err())

	list, err := store.List(context.Background(), "sess")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.RoadTrafficAct, list[0].Category)
	assert.Equal(t, "음주운전 처벌 기준은?", list[0].Question)
	assert.Equal(t, "도로교통법 제44조...", list[0].Answer)
	assert.Equal(t, 100, list[0].Usage.TotalTokens)
	assert.Equal(t, "1.02초", list[0].Elapsed)
}

func TestRecorder_WriteFailureIsRemembered(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	rec := NewRecorder(store, "sess", nil)
	s := session.NewState(model.CriminalLaw)
	s.Status = session.StatusSubmitting
	rec.Observe(s)
	s.Status = session.StatusSuccess
	rec.Observe(s)
	rec.Close()

	assert.Equal(t, 0, rec.Saved())
	assert.True(t, errors.Is(rec.Err(), ErrStoreClosed))
}

// blockingSaver holds every Save until release is closed.
type blockingSaver struct {
	release chan struct{}
	mu      sync.Mutex
	got     []string
}

func (b *blockingSaver) Save(ctx context.Context, t *Transcript) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, t.Question)
	return nil
}

func completeTurn(rec *Recorder, q string) {
	s := session.NewState(model.LaborStandardsAct)
	s.Status = session.StatusSubmitting
	s.PendingQuestion = q
	rec.Observe(s)
	s.Status = session.StatusSuccess
	s.LastAnswer = "답변"
	rec.Observe(s)
}

func TestRecorder_ObserveDoesNotWaitForWrites(t *testing.T) {
	saver := &blockingSaver{release: make(chan struct{})}
	rec := NewRecorder(saver, "sess", nil)

	observed := make(chan struct{})
	go func() {
		completeTurn(rec, "q1")
		completeTurn(rec, "q2")
		close(observed)
	}()

	select {
	case <-observed:
	case <-time.After(2 * time.Second):
		t.Fatal("Observe blocked on a pending write")
	}
	assert.Equal(t, 0, rec.Saved())

	close(saver.release)
	rec.Close()

	assert.Equal(t, 2, rec.Saved())
	assert.NoError(t, rec.Err())
	assert.Equal(t, []string{"q1", "q2"}, saver.got)
}

func TestRecorder_IgnoresTurnsAfterClose(t *testing.T) {
	store := openStore(t)
	rec := NewRecorder(store, "sess", nil)
	completeTurn(rec, "before")
	rec.Close()
	completeTurn(rec, "after")
	rec.Close()

	assert.Equal(t, 1, rec.Saved())
	list, err := store.List(context.Background(), "sess")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "before", list[0].Question)
}
