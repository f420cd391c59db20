// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lawqa provides the HTTP client for the legal question-answering service.
package lawqa

import (
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// QueryRequest is the request body for the /query endpoint.
type QueryRequest struct {
	Question string `json:"question"`      // Trimmed user question
	Law      string `json:"law,omitempty"` // Category wire code, omitted to let the service pick its scope
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// QueryResponse is the response from the /query endpoint.
// Answer and Tokens are pointers so a payload missing them can be told
// apart from one carrying empty values.
type QueryResponse struct {
	Answer      *string           `json:"answer"`
	ElapsedTime string            `json:"elapsed_time"`
	Tokens      *model.TokenUsage `json:"tokens"`
	ChatHistory []model.ChatTurn  `json:"chat_history"`
}

// validate checks the fields the client depends on.
func (r *QueryResponse) validate() error {
	if r.Answer == nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "response missing answer"}
	}
	if r.Tokens == nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "response missing tokens"}
	}
	t := r.Tokens
	if t.QueryTokens < 0 || t.PromptTokens < 0 || t.ResponseTokens < 0 || t.TotalTokens < 0 {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "response has negative token counts"}
	}
	return nil
}

// ToAnswer converts a validated response to the domain type.
func (r *QueryResponse) ToAnswer() *model.Answer {
	ans := &model.Answer{
		ElapsedTime: r.ElapsedTime,
		ChatHistory: model.CloneTurns(r.ChatHistory),
	}
	if r.Answer != nil {
		ans.Answer = *r.Answer
	}
	if r.Tokens != nil {
		ans.Tokens = *r.Tokens
	}
	return ans
}
