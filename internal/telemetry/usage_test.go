// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
)

func usage(total int) model.TokenUsage {
	return model.TokenUsage{QueryTokens: 1, PromptTokens: total - 10, ResponseTokens: 10, TotalTokens: total}
}

// feed drives the tracker through one dispatch the way a controller would.
func feed(tr *UsageTracker, law model.LawCategory, q string, final session.State) {
	start := session.NewState(law)
	start.Status = session.StatusSubmitting
	start.PendingQuestion = q
	tr.Observe(start)

	final.PendingQuestion = q
	tr.Observe(final)
}

func TestUsageTracker_ObserveCountsTransitionsOnce(t *testing.T) {
	tr := NewUsageTracker("s1", nil)

	ok := session.NewState(model.CriminalLaw)
	ok.Status = session.StatusSuccess
	ok.LastUsage = usage(165)
	ok.LastElapsed = "1.2s"
	feed(tr, model.CriminalLaw, "정당방위란?", ok)

	// Category changes republish the Success state; they must not recount.
	ok.Category = model.CivilLaw
	tr.Observe(ok)

	failed := session.NewState(model.CivilLaw)
	failed.Status = session.StatusError
	feed(tr, model.CivilLaw, "q2", failed)

	cur := tr.Current()
	assert.Equal(t, 1, cur.Answers)
	assert.Equal(t, 1, cur.Errors)
	assert.Equal(t, 165, cur.Tokens.TotalTokens)
	assert.Equal(t, 165, cur.ByLaw["Criminal_Law"].TotalTokens)
	require.Len(t, cur.TopQueries, 1)
	assert.Equal(t, "정당방위란?", cur.TopQueries[0].Question)
	assert.Equal(t, "1.2s", cur.TopQueries[0].Elapsed)
	assert.Equal(t, "1 answers · 165 tokens · 1 errors", tr.StatusLine())
}

func TestUsageTracker_TopQueriesCapped(t *testing.T) {
	tr := NewUsageTracker("s1", nil)
	for i := 1; i <= 15; i++ {
		tr.Record("q", model.CivilLaw, usage(100*i), "1s")
	}

	cur := tr.Current()
	require.Len(t, cur.TopQueries, maxTopQueries)
	assert.Equal(t, 1500, cur.TopQueries[0].Tokens.TotalTokens)
	assert.Equal(t, 600, cur.TopQueries[maxTopQueries-1].Tokens.TotalTokens)
	assert.Equal(t, 15, cur.Answers)
}

func TestUsageTracker_CurrentIsCopy(t *testing.T) {
	tr := NewUsageTracker("s1", nil)
	tr.Record("q", model.CivilLaw, usage(50), "1s")

	cur := tr.Current()
	cur.ByLaw["Civil_Law"] = model.TokenUsage{}
	cur.TopQueries[0].Question = "changed"

	again := tr.Current()
	assert.Equal(t, 50, again.ByLaw["Civil_Law"].TotalTokens)
	assert.Equal(t, "q", again.TopQueries[0].Question)
}

func TestUsageTracker_SaveAndTrends(t *testing.T) {
	storage, err := NewUsageStorage(t.TempDir())
	require.NoError(t, err)

	// Nothing recorded yet: no file.
	empty := NewUsageTracker("empty", storage)
	require.NoError(t, empty.Save())
	n, err := storage.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	tr := NewUsageTracker("abc", storage)
	tr.Record("q1", model.CriminalLaw, usage(100), "1s")
	tr.Record("q2", model.LaborStandardsAct, usage(200), "2s")
	require.NoError(t, tr.Save())

	loaded, err := storage.Load("abc")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Answers)
	assert.False(t, loaded.EndTime.IsZero())

	trends, err := Trends(storage, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, trends.Sessions)
	assert.Equal(t, 300, trends.Tokens.TotalTokens)
	assert.Equal(t, 200, trends.LawBreakdown["Labor_Standards_Act"].TotalTokens)
	require.Len(t, trends.DailyBreakdown, 1)
	assert.Equal(t, 2, trends.DailyBreakdown[0].Answers)

	_, err = storage.Load("missing")
	assert.ErrorIs(t, err, os.ErrNotExist)

	removed, err := storage.DeleteBefore(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestNewUsageStorage_EmptyDir(t *testing.T) {
	_, err := NewUsageStorage("")
	assert.Error(t, err)
}
