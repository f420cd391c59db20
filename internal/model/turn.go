// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the answering client,
// the session controller, and the presentation layers.
package model

import "slices"

// =============================================================================
// TOKEN USAGE
// =============================================================================

// TokenUsage is the per-answer usage reported by the answering service.
// The client treats the counters as opaque and never recomputes them.
type TokenUsage struct {
	QueryTokens    int `json:"query_tokens"`
	PromptTokens   int `json:"prompt_tokens"`
	ResponseTokens int `json:"response_tokens"`
	TotalTokens    int `json:"total_tokens"`
}

// IsZero reports whether every counter is zero.
func (u TokenUsage) IsZero() bool {
	return u == TokenUsage{}
}

// Add returns the counter-wise sum of u and other.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		QueryTokens:    u.QueryTokens + other.QueryTokens,
		PromptTokens:   u.PromptTokens + other.PromptTokens,
		ResponseTokens: u.ResponseTokens + other.ResponseTokens,
		TotalTokens:    u.TotalTokens + other.TotalTokens,
	}
}

// =============================================================================
// CHAT TURN
// =============================================================================

// ChatTurn is one completed question/answer exchange.
type ChatTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// =============================================================================
// ANSWER
// =============================================================================

// Answer is a successful response from the answering service.
type Answer struct {
	Answer      string     `json:"answer"`
	ElapsedTime string     `json:"elapsed_time"`
	Tokens      TokenUsage `json:"tokens"`
	ChatHistory []ChatTurn `json:"chat_history"`
}

// CloneTurns returns a copy of turns that never aliases the input.
// A nil or empty input yields an empty, non-nil slice.
func CloneTurns(turns []ChatTurn) []ChatTurn {
	if len(turns) == 0 {
		return []ChatTurn{}
	}
	return slices.Clone(turns)
}
