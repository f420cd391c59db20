// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
)

func turns(pairs ...string) []model.ChatTurn {
	out := []model.ChatTurn{}
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.ChatTurn{Question: pairs[i], Answer: pairs[i+1]})
	}
	return out
}

func answerWith(text string, history []model.ChatTurn) *model.Answer {
	return &model.Answer{
		Answer:      text,
		ElapsedTime: "1.2s",
		Tokens:      model.TokenUsage{QueryTokens: 5, PromptTokens: 120, ResponseTokens: 40, TotalTokens: 165},
		ChatHistory: history,
	}
}

// =============================================================================
// POLICY TESTS
// =============================================================================

func TestParseHistoryPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    HistoryPolicy
		wantErr bool
	}{
		{"", HistoryReplace, false},
		{"replace", HistoryReplace, false},
		{" APPEND ", HistoryAppend, false},
		{"merge", HistoryReplace, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHistoryPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := ParseHistoryPolicy(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, back)
		})
	}
}

// =============================================================================
// START TESTS
// =============================================================================

func TestReducer_StartResetsAnswerFields(t *testing.T) {
	r := NewReducer(HistoryReplace)
	prev := NewState(model.CivilLaw)
	prev.Status = StatusSuccess
	prev.LastAnswer = "old"
	prev.LastElapsed = "3.0s"
	prev.LastUsage = model.TokenUsage{TotalTokens: 9}
	prev.History = turns("q0", "a0")

	next := r.Start(prev, "q1")

	assert.Equal(t, StatusSubmitting, next.Status)
	assert.Equal(t, "q1", next.PendingQuestion)
	assert.Equal(t, DefaultMessages().Generating, next.LastAnswer)
	assert.Empty(t, next.LastElapsed)
	assert.True(t, next.LastUsage.IsZero())
	assert.Equal(t, prev.History, next.History)
	assert.Equal(t, model.CivilLaw, next.Category)

	// prev untouched
	assert.Equal(t, "old", prev.LastAnswer)
	assert.Equal(t, StatusSuccess, prev.Status)
}

// =============================================================================
// APPLY TESTS
// =============================================================================

func TestReducer_ApplyBlankLeavesStateUnchanged(t *testing.T) {
	r := NewReducer(HistoryReplace)
	prev := NewState(model.CriminalLaw)
	prev.History = turns("q", "a")

	next := r.Apply(prev, "", Outcome{Err: ErrBlankQuestion})
	assert.Equal(t, prev, next)
}

func TestReducer_ApplyTransportError(t *testing.T) {
	r := NewReducer(HistoryReplace)
	prev := r.Start(NewState(model.CriminalLaw), "q")
	prev.History = turns("q0", "a0")

	next := r.Apply(prev, "q", Outcome{Err: ErrTransport})

	assert.Equal(t, StatusError, next.Status)
	assert.Equal(t, "오류 발생! 다시 시도해 주세요.", next.LastAnswer)
	assert.True(t, next.LastUsage.IsZero())
	assert.Empty(t, next.LastElapsed)
	assert.Equal(t, turns("q0", "a0"), next.History)
}

func TestReducer_ApplySuccessCopiesPayload(t *testing.T) {
	r := NewReducer(HistoryReplace)
	prev := r.Start(NewState(model.CriminalLaw), "q1")
	ans := answerWith("a1", turns("q1", "a1"))

	next := r.Apply(prev, "q1", Outcome{Answer: ans})

	assert.Equal(t, StatusSuccess, next.Status)
	assert.Equal(t, "a1", next.LastAnswer)
	assert.Equal(t, "1.2s", next.LastElapsed)
	assert.Equal(t, ans.Tokens, next.LastUsage)
	assert.Equal(t, turns("q1", "a1"), next.History)

	// The state does not alias the payload.
	ans.ChatHistory[0].Answer = "mutated"
	assert.Equal(t, "a1", next.History[0].Answer)
}

func TestReducer_HistoryPolicies(t *testing.T) {
	tests := []struct {
		name    string
		policy  HistoryPolicy
		prev    []model.ChatTurn
		payload []model.ChatTurn
		want    []model.ChatTurn
		regress bool
	}{
		{
			name:    "replace takes service history",
			policy:  HistoryReplace,
			prev:    turns("q1", "a1"),
			payload: turns("q1", "a1", "q2", "a2"),
			want:    turns("q1", "a1", "q2", "a2"),
		},
		{
			name:    "replace keeps local history when service forgot",
			policy:  HistoryReplace,
			prev:    turns("q1", "a1", "q2", "a2"),
			payload: turns("q3", "a3"),
			want:    turns("q1", "a1", "q2", "a2", "q3", "a3"),
			regress: true,
		},
		{
			name:    "replace with a sliding window keeps older local turns",
			policy:  HistoryReplace,
			prev:    turns("q1", "a1", "q2", "a2"),
			payload: turns("q2", "a2", "q3", "a3"),
			want:    turns("q1", "a1", "q2", "a2", "q3", "a3"),
		},
		{
			name:    "replace from empty service history",
			policy:  HistoryReplace,
			prev:    turns("q1", "a1"),
			payload: nil,
			want:    turns("q1", "a1", "q3", "a3"),
			regress: true,
		},
		{
			name:    "append adds the new turn",
			policy:  HistoryAppend,
			prev:    turns("q1", "a1"),
			payload: turns("q1", "a1"),
			want:    turns("q1", "a1", "q3", "a3"),
		},
		{
			name:    "append from empty service history",
			policy:  HistoryAppend,
			prev:    turns("q1", "a1", "q2", "a2"),
			payload: nil,
			want:    turns("q1", "a1", "q2", "a2", "q3", "a3"),
			regress: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReducer(tt.policy)
			prev := NewState(model.CriminalLaw)
			prev.History = tt.prev
			ans := answerWith("a3", tt.payload)

			assert.Equal(t, tt.regress, r.HistoryRegressed(prev, ans))

			next := r.Apply(r.Start(prev, "q3"), "q3", Outcome{Answer: ans})
			assert.Equal(t, tt.want, next.History)
			assert.GreaterOrEqual(t, len(next.History), len(tt.prev))
		})
	}
}

// windowed mimics a service that returns only its last size turns.
func windowed(all []model.ChatTurn, size int) []model.ChatTurn {
	return all[max(len(all)-size, 0):]
}

func TestReducer_WindowedServiceHistoryKeepsEveryTurn(t *testing.T) {
	const window = 10
	for _, policy := range []HistoryPolicy{HistoryReplace, HistoryAppend} {
		t.Run(policy.String(), func(t *testing.T) {
			r := NewReducer(policy)
			state := NewState(model.CriminalLaw)
			var served []model.ChatTurn

			for i := 1; i <= 2*window+3; i++ {
				q, a := fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)
				payload := windowed(served, window)
				if policy == HistoryReplace {
					served = append(served, model.ChatTurn{Question: q, Answer: a})
					payload = windowed(served, window)
				} else {
					served = append(served, model.ChatTurn{Question: q, Answer: a})
				}

				ans := answerWith(a, payload)
				assert.False(t, r.HistoryRegressed(state, ans), "turn %d", i)
				state = r.Apply(r.Start(state, q), q, Outcome{Answer: ans})

				require.Len(t, state.History, i)
				assert.Equal(t, "q1", state.History[0].Question)
				assert.Equal(t, q, state.History[i-1].Question)
			}
			assert.Equal(t, served, state.History)
		})
	}
}

// =============================================================================
// MESSAGES TESTS
// =============================================================================

func TestMessagesFor(t *testing.T) {
	assert.Equal(t, "답변을 생성 중입니다...", MessagesFor("ko").Generating)
	assert.Equal(t, "답변을 생성 중입니다...", MessagesFor("ko-KR").Generating)
	assert.Equal(t, "답변을 생성 중입니다...", MessagesFor("").Generating)
	assert.Equal(t, "답변을 생성 중입니다...", MessagesFor("not a locale!").Generating)
	assert.Equal(t, englishMessages, MessagesFor("en"))
	assert.Equal(t, englishMessages, MessagesFor("en-GB"))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "submitting", StatusSubmitting.String())
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}
