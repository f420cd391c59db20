// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the query session controller.
package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
)

// =============================================================================
// HISTORY POLICY
// =============================================================================

// HistoryPolicy decides how a successful answer's history is merged.
type HistoryPolicy int

const (
	// HistoryReplace takes the service's chat_history as authoritative.
	HistoryReplace HistoryPolicy = iota

	// HistoryAppend takes the service's chat_history and appends the
	// just-completed turn locally.
	HistoryAppend
)

// String returns the config name of the policy.
func (p HistoryPolicy) String() string {
	switch p {
	case HistoryReplace:
		return "replace"
	case HistoryAppend:
		return "append"
	default:
		return fmt.Sprintf("HistoryPolicy(%d)", int(p))
	}
}

// ParseHistoryPolicy parses "replace" or "append". Empty means replace.
func ParseHistoryPolicy(s string) (HistoryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace":
		return HistoryReplace, nil
	case "append":
		return HistoryAppend, nil
	default:
		return HistoryReplace, fmt.Errorf("unknown history policy %q (want replace or append)", s)
	}
}

// =============================================================================
// OUTCOME
// =============================================================================

// Outcome is the result of one dispatch. Exactly one of Answer and Err is set.
type Outcome struct {
	Answer *model.Answer
	Err    error
}

// =============================================================================
// REDUCER
// =============================================================================

// Reducer computes successive session states. Its methods never modify
// the state they are given.
type Reducer struct {
	Policy   HistoryPolicy
	Messages Messages
}

// NewReducer returns a reducer with the given policy and Korean messages.
func NewReducer(policy HistoryPolicy) Reducer {
	return Reducer{Policy: policy, Messages: DefaultMessages()}
}

// Start returns the state for a newly accepted question.
func (r Reducer) Start(prev State, question string) State {
	next := prev.Clone()
	next.Status = StatusSubmitting
	next.PendingQuestion = question
	next.LastAnswer = r.Messages.Generating
	next.LastElapsed = ""
	next.LastUsage = model.TokenUsage{}
	return next
}

// Apply returns the state after an outcome for question.
// A blank-question outcome leaves the state unchanged.
func (r Reducer) Apply(prev State, question string, out Outcome) State {
	if errors.Is(out.Err, ErrBlankQuestion) {
		return prev.Clone()
	}

	next := prev.Clone()
	if out.Err != nil || out.Answer == nil {
		next.Status = StatusError
		next.LastAnswer = r.Messages.Retry
		next.LastElapsed = ""
		next.LastUsage = model.TokenUsage{}
		return next
	}

	ans := out.Answer
	next.Status = StatusSuccess
	next.LastAnswer = ans.Answer
	next.LastElapsed = ans.ElapsedTime
	next.LastUsage = ans.Tokens
	next.History = r.mergeHistory(prev.History, question, ans)
	return next
}

// mergeHistory applies the policy. Local turns are never dropped: the
// service list is laid over the local history where a suffix of the local
// history equals a prefix of the service list, and only the turns past that
// overlap are appended. This keeps turns that slid out of a windowed
// service history, and keeps the whole local history when the service lost
// its own (restart).
func (r Reducer) mergeHistory(prev []model.ChatTurn, question string, ans *model.Answer) []model.ChatTurn {
	service := r.serviceTurns(question, ans)
	o := overlap(prev, service)
	if o == 0 && len(prev) > 0 && !containsTurn(service, question, ans.Answer) {
		service = append(service, model.ChatTurn{Question: question, Answer: ans.Answer})
	}
	return append(model.CloneTurns(prev), service[o:]...)
}

// serviceTurns is the history the service reported, with the completed turn
// added under the append policy.
func (r Reducer) serviceTurns(question string, ans *model.Answer) []model.ChatTurn {
	turns := model.CloneTurns(ans.ChatHistory)
	if r.Policy == HistoryAppend {
		turns = append(turns, model.ChatTurn{Question: question, Answer: ans.Answer})
	}
	return turns
}

// HistoryRegressed reports whether the service history shares no turns
// with a non-empty local history, which means the service lost it.
func (r Reducer) HistoryRegressed(prev State, ans *model.Answer) bool {
	if ans == nil || len(prev.History) == 0 {
		return false
	}
	return overlap(prev.History, ans.ChatHistory) == 0
}

// overlap returns the length of the longest suffix of prev that is also a
// prefix of next.
func overlap(prev, next []model.ChatTurn) int {
	for n := min(len(prev), len(next)); n > 0; n-- {
		if slices.Equal(prev[len(prev)-n:], next[:n]) {
			return n
		}
	}
	return 0
}

func containsTurn(turns []model.ChatTurn, question, answer string) bool {
	return slices.Contains(turns, model.ChatTurn{Question: question, Answer: answer})
}
