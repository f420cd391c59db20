// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CATEGORY REGISTRY TESTS
// =============================================================================

func TestCategories_HaveRequiredFields(t *testing.T) {
	for _, c := range Categories() {
		t.Run(c.String(), func(t *testing.T) {
			info := c.Info()
			assert.NotEmpty(t, info.Code)
			assert.NotEmpty(t, info.Label)
			assert.NotEmpty(t, info.EnglishLabel)
		})
	}
}

func TestDefaultCategory(t *testing.T) {
	var zero LawCategory
	assert.Equal(t, CriminalLaw, zero)
	assert.Equal(t, CriminalLaw, DefaultCategory)
	assert.Equal(t, "Criminal_Law", DefaultCategory.Code())
	assert.Equal(t, "형법", DefaultCategory.Label())
}

func TestParseLawCategory(t *testing.T) {
	tests := []struct {
		in   string
		want LawCategory
	}{
		{"Criminal_Law", CriminalLaw},
		{"civil_law", CivilLaw},
		{"Road Traffic Act", RoadTrafficAct},
		{"LaborStandardsAct", LaborStandardsAct},
		{"경찰관직무집행법", PoliceDutiesAct},
		{"  Civil_Law  ", CivilLaw},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLawCategory(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseLawCategory_Unknown(t *testing.T) {
	for _, in := range []string{"", "   ", "Tax_Law"} {
		_, err := ParseLawCategory(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestLawCategory_NextPrevWrap(t *testing.T) {
	assert.Equal(t, CivilLaw, CriminalLaw.Next())
	assert.Equal(t, CriminalLaw, PoliceDutiesAct.Next())
	assert.Equal(t, PoliceDutiesAct, CriminalLaw.Prev())
}

func TestLawCategory_Invalid(t *testing.T) {
	bad := LawCategory(42)
	assert.False(t, bad.Valid())
	assert.Equal(t, "", bad.Code())
	assert.Equal(t, "LawCategory(42)", bad.String())

	_, err := bad.MarshalText()
	assert.Error(t, err)
}

func TestLawCategory_LocalizedLabel(t *testing.T) {
	assert.Equal(t, "Labor Standards Act", LaborStandardsAct.LocalizedLabel("en-US"))
	assert.Equal(t, "근로기준법", LaborStandardsAct.LocalizedLabel("ko"))
}

func TestLawCategory_JSONUsesWireCode(t *testing.T) {
	data, err := json.Marshal(map[string]LawCategory{"law": RoadTrafficAct})
	require.NoError(t, err)
	assert.JSONEq(t, `{"law":"Road_Traffic_Act"}`, string(data))

	var back map[string]LawCategory
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, RoadTrafficAct, back["law"])
}

// =============================================================================
// USAGE AND TURN TESTS
// =============================================================================

func TestTokenUsage_Add(t *testing.T) {
	a := TokenUsage{QueryTokens: 1, PromptTokens: 2, ResponseTokens: 3, TotalTokens: 5}
	b := TokenUsage{QueryTokens: 10, PromptTokens: 20, ResponseTokens: 30, TotalTokens: 50}

	assert.Equal(t, TokenUsage{11, 22, 33, 55}, a.Add(b))
	assert.True(t, TokenUsage{}.IsZero())
	assert.False(t, a.IsZero())
}

func TestCloneTurns_DoesNotAlias(t *testing.T) {
	orig := []ChatTurn{{Question: "q", Answer: "a"}}
	clone := CloneTurns(orig)
	clone[0].Answer = "changed"

	assert.Equal(t, "a", orig[0].Answer)
	assert.NotNil(t, CloneTurns(nil))
	assert.Empty(t, CloneTurns(nil))
}

func TestAnswer_DecodesWirePayload(t *testing.T) {
	payload := `{
		"answer": "정당방위는 형법 제21조에 규정되어 있습니다.",
		"elapsed_time": "1.2s",
		"tokens": {"query_tokens": 5, "prompt_tokens": 120, "response_tokens": 40, "total_tokens": 165},
		"chat_history": [{"question": "q1", "answer": "a1"}]
	}`

	var ans Answer
	require.NoError(t, json.Unmarshal([]byte(payload), &ans))
	assert.Equal(t, "1.2s", ans.ElapsedTime)
	assert.Equal(t, TokenUsage{5, 120, 40, 165}, ans.Tokens)
	require.Len(t, ans.ChatHistory, 1)
	assert.Equal(t, "q1", ans.ChatHistory[0].Question)
}
