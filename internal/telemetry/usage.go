// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry tallies token usage reported by the answering service.
package telemetry

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/util"
)

// maxTopQueries is how many of the largest queries a session keeps.
const maxTopQueries = 10

// =============================================================================
// TYPES
// =============================================================================

// SessionUsage tracks usage for a single session.
type SessionUsage struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`

	Answers int `json:"answers"`
	Errors  int `json:"errors"`

	// Tokens is the counter-wise sum over successful answers.
	Tokens model.TokenUsage `json:"tokens"`

	// ByLaw is keyed by category wire code.
	ByLaw map[string]model.TokenUsage `json:"by_law"`

	// TopQueries holds the largest queries by total tokens, descending.
	TopQueries []QueryUsage `json:"top_queries"`
}

// QueryUsage is one successful answer's usage.
type QueryUsage struct {
	Timestamp time.Time        `json:"timestamp"`
	Question  string           `json:"question"` // First 100 chars
	Law       string           `json:"law"`
	Tokens    model.TokenUsage `json:"tokens"`
	Elapsed   string           `json:"elapsed"` // As reported by the service
}

// UsageTrends aggregates stored sessions by day.
type UsageTrends struct {
	Days           int                         `json:"days"`
	Sessions       int                         `json:"sessions"`
	Answers        int                         `json:"answers"`
	Tokens         model.TokenUsage            `json:"tokens"`
	DailyBreakdown []DailyUsage                `json:"daily_breakdown"`
	LawBreakdown   map[string]model.TokenUsage `json:"law_breakdown"`
}

// DailyUsage is one day of UsageTrends.
type DailyUsage struct {
	Date    time.Time `json:"date"`
	Answers int       `json:"answers"`
	Tokens  int       `json:"tokens"`
}

// =============================================================================
// TRACKER
// =============================================================================

// UsageTracker tallies a session's usage from controller snapshots.
type UsageTracker struct {
	mu         sync.RWMutex
	current    *SessionUsage
	storage    *UsageStorage
	lastStatus session.Status
	lastCat    model.LawCategory
}

// NewUsageTracker creates a tracker for sessionID. storage may be nil, in
// which case Save is a no-op.
func NewUsageTracker(sessionID string, storage *UsageStorage) *UsageTracker {
	return &UsageTracker{
		current:    newSessionUsage(sessionID, time.Now()),
		storage:    storage,
		lastStatus: session.StatusIdle,
	}
}

func newSessionUsage(id string, start time.Time) *SessionUsage {
	return &SessionUsage{
		ID:         id,
		StartTime:  start,
		ByLaw:      make(map[string]model.TokenUsage),
		TopQueries: make([]QueryUsage, 0),
	}
}

// Observe consumes a session snapshot. A dispatch is counted once, on the
// transition out of Submitting. Pass it to Controller.Subscribe.
func (t *UsageTracker) Observe(s session.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.lastStatus
	t.lastStatus = s.Status
	if s.Status == session.StatusSubmitting && prev != session.StatusSubmitting {
		t.lastCat = s.Category
	}
	if prev != session.StatusSubmitting {
		return
	}

	switch s.Status {
	case session.StatusSuccess:
		t.record(s.PendingQuestion, t.lastCat, s.LastUsage, s.LastElapsed)
	case session.StatusError:
		t.current.Errors++
	}
}

// Record adds one successful answer directly.
func (t *UsageTracker) Record(question string, law model.LawCategory, usage model.TokenUsage, elapsed string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(question, law, usage, elapsed)
}

func (t *UsageTracker) record(question string, law model.LawCategory, usage model.TokenUsage, elapsed string) {
	s := t.current
	s.Answers++
	s.Tokens = s.Tokens.Add(usage)
	s.ByLaw[law.Code()] = s.ByLaw[law.Code()].Add(usage)

	s.TopQueries = append(s.TopQueries, QueryUsage{
		Timestamp: time.Now(),
		Question:  util.TruncateRunes(util.SingleLine(question), 100),
		Law:       law.Code(),
		Tokens:    usage,
		Elapsed:   elapsed,
	})
	slices.SortStableFunc(s.TopQueries, func(a, b QueryUsage) int {
		return b.Tokens.TotalTokens - a.Tokens.TotalTokens
	})
	if len(s.TopQueries) > maxTopQueries {
		s.TopQueries = s.TopQueries[:maxTopQueries]
	}
}

// =============================================================================
// RETRIEVAL
// =============================================================================

// Current returns a copy of the current session's usage.
func (t *UsageTracker) Current() *SessionUsage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copySession(t.current)
}

// StatusLine renders a short summary for a status bar.
func (t *UsageTracker) StatusLine() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.current
	line := fmt.Sprintf("%d answers · %s tokens", s.Answers, util.FormatCount(s.Tokens.TotalTokens))
	if s.Errors > 0 {
		line += fmt.Sprintf(" · %d errors", s.Errors)
	}
	return line
}

// Save persists the current session. It is a no-op without storage or
// before the first completed dispatch.
func (t *UsageTracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.storage == nil || (t.current.Answers == 0 && t.current.Errors == 0) {
		return nil
	}
	t.current.EndTime = time.Now()
	return t.storage.Save(t.current)
}

// Trends aggregates stored sessions from the last days days.
func Trends(storage *UsageStorage, days int) (*UsageTrends, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -days)

	sessions, err := storage.LoadRange(from, to)
	if err != nil {
		return nil, err
	}

	trends := &UsageTrends{
		Days:           days,
		Sessions:       len(sessions),
		DailyBreakdown: make([]DailyUsage, 0),
		LawBreakdown:   make(map[string]model.TokenUsage),
	}

	daily := make(map[string]*DailyUsage)
	for _, s := range sessions {
		key := s.StartTime.Format("2006-01-02")
		d, ok := daily[key]
		if !ok {
			y, m, dd := s.StartTime.Date()
			d = &DailyUsage{Date: time.Date(y, m, dd, 0, 0, 0, 0, s.StartTime.Location())}
			daily[key] = d
		}
		d.Answers += s.Answers
		d.Tokens += s.Tokens.TotalTokens

		trends.Answers += s.Answers
		trends.Tokens = trends.Tokens.Add(s.Tokens)
		for law, u := range s.ByLaw {
			trends.LawBreakdown[law] = trends.LawBreakdown[law].Add(u)
		}
	}

	for _, key := range slices.Sorted(maps.Keys(daily)) {
		trends.DailyBreakdown = append(trends.DailyBreakdown, *daily[key])
	}
	return trends, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func copySession(src *SessionUsage) *SessionUsage {
	dst := *src
	dst.ByLaw = maps.Clone(src.ByLaw)
	if dst.ByLaw == nil {
		dst.ByLaw = make(map[string]model.TokenUsage)
	}
	dst.TopQueries = slices.Clone(src.TopQueries)
	if dst.TopQueries == nil {
		dst.TopQueries = make([]QueryUsage, 0)
	}
	return &dst
}
