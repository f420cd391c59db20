// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes legal Q&A sessions to files.
package export

import (
	"time"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/storage"
)

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a session prepared for export.
type Document struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Locale    string    `json:"locale,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Entries   []Entry   `json:"entries"`
}

// Entry is one exported question/answer pair. Category, usage and elapsed
// time are only known for archived turns and for the latest live turn.
type Entry struct {
	Question string             `json:"question"`
	Answer   string             `json:"answer"`
	Category *model.LawCategory `json:"law,omitempty"`
	Tokens   *model.TokenUsage  `json:"tokens,omitempty"`
	Elapsed  string             `json:"elapsed_time,omitempty"`
	AskedAt  *time.Time         `json:"asked_at,omitempty"`
}

// TotalTokens sums total_tokens over the entries that carry usage.
func (d *Document) TotalTokens() int {
	n := 0
	for _, e := range d.Entries {
		if e.Tokens != nil {
			n += e.Tokens.TotalTokens
		}
	}
	return n
}

// Turns returns the entries as plain chat history.
func (d *Document) Turns() []model.ChatTurn {
	out := make([]model.ChatTurn, 0, len(d.Entries))
	for _, e := range d.Entries {
		out = append(out, model.ChatTurn{Question: e.Question, Answer: e.Answer})
	}
	return out
}

// FromState builds a document from the live session history. The last
// entry carries the latest answer's metadata when the session just
// succeeded.
func FromState(sessionID string, started time.Time, s session.State, locale string) *Document {
	doc := &Document{
		SessionID: sessionID,
		Locale:    locale,
		CreatedAt: started,
		Entries:   make([]Entry, 0, len(s.History)),
	}
	for _, t := range s.History {
		doc.Entries = append(doc.Entries, Entry{Question: t.Question, Answer: t.Answer})
	}

	if s.Status == session.StatusSuccess && len(doc.Entries) > 0 {
		last := &doc.Entries[len(doc.Entries)-1]
		if last.Question == s.PendingQuestion {
			cat := s.Category
			usage := s.LastUsage
			last.Category = &cat
			last.Tokens = &usage
			last.Elapsed = s.LastElapsed
		}
	}

	doc.Title = titleFor(doc, s.Category.LocalizedLabel(locale))
	return doc
}

// FromTranscripts builds a document from archived transcripts of one
// session, in the order given.
func FromTranscripts(sessionID string, ts []storage.Transcript, locale string) *Document {
	doc := &Document{
		SessionID: sessionID,
		Locale:    locale,
		Entries:   make([]Entry, 0, len(ts)),
	}
	for i := range ts {
		t := ts[i]
		cat := t.Category
		usage := t.Usage
		asked := t.CreatedAt
		doc.Entries = append(doc.Entries, Entry{
			Question: t.Question,
			Answer:   t.Answer,
			Category: &cat,
			Tokens:   &usage,
			Elapsed:  t.Elapsed,
			AskedAt:  &asked,
		})
	}
	if len(ts) > 0 {
		doc.CreatedAt = ts[0].CreatedAt
		doc.Title = titleFor(doc, ts[0].Category.LocalizedLabel(locale))
	} else {
		doc.Title = titleFor(doc, "")
	}
	return doc
}

func titleFor(doc *Document, label string) string {
	if len(doc.Entries) > 0 {
		return doc.Entries[0].Question
	}
	if label != "" {
		return label
	}
	return "kiseha session"
}
