// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the query session controller.
package session

import (
	"fmt"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the lifecycle phase of the session.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusSuccess
	StatusError
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// =============================================================================
// STATE
// =============================================================================

// State is the complete observable state of a session.
type State struct {
	// Category scopes the next submission.
	Category model.LawCategory

	// PendingQuestion is the last accepted question, "" before the first.
	// It is kept after completion so views can show what was asked.
	PendingQuestion string

	Status Status

	// LastAnswer holds the answer text, or a localized placeholder or
	// retry message while submitting or after a failure.
	LastAnswer  string
	LastElapsed string
	LastUsage   model.TokenUsage

	// History never shrinks over the life of a session.
	History []model.ChatTurn
}

// NewState returns the initial state for a session scoped to category.
func NewState(category model.LawCategory) State {
	return State{
		Category: category,
		Status:   StatusIdle,
		History:  []model.ChatTurn{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.History = model.CloneTurns(s.History)
	return s
}

// Submitting reports whether a question is outstanding.
func (s State) Submitting() bool {
	return s.Status == StatusSubmitting
}

// LastTurn returns the newest history entry.
func (s State) LastTurn() (model.ChatTurn, bool) {
	if len(s.History) == 0 {
		return model.ChatTurn{}, false
	}
	return s.History[len(s.History)-1], true
}
