// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lawqa provides the HTTP client for the legal question-answering service.
package lawqa

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
)

const okPayload = `{
	"answer": "형법 제21조에 따라 정당방위가 인정될 수 있습니다.",
	"elapsed_time": "2.31초",
	"tokens": {"query_tokens": 12, "prompt_tokens": 340, "response_tokens": 85, "total_tokens": 425},
	"chat_history": [{"question": "정당방위란?", "answer": "형법 제21조에 따라 정당방위가 인정될 수 있습니다."}]
}`

// newTestServer returns a server that records the last request body.
func newTestServer(t *testing.T, status int, body string, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			raw, _ := io.ReadAll(r.Body)
			m := map[string]any{}
			_ = json.Unmarshal(raw, &m)
			*got = m
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestNewClientWithConfig_FillsDefaults(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{BaseURL: "http://example.test:8000/"})

	if c.GetConfig().BaseURL != "http://example.test:8000" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", c.GetConfig().BaseURL)
	}
	if c.GetConfig().Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", c.GetConfig().Timeout)
	}

	d := NewClientWithConfig(nil)
	if d.GetConfig().BaseURL != DefaultConfig().BaseURL {
		t.Errorf("BaseURL = %q, want default", d.GetConfig().BaseURL)
	}
}

// =============================================================================
// QUERY TESTS
// =============================================================================

func TestAsk_Success(t *testing.T) {
	var req map[string]any
	srv := newTestServer(t, http.StatusOK, okPayload, &req)
	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})

	ans, err := c.Ask(context.Background(), "정당방위란?", model.CriminalLaw)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if req["question"] != "정당방위란?" {
		t.Errorf("question = %v", req["question"])
	}
	if req["law"] != "Criminal_Law" {
		t.Errorf("law = %v, want Criminal_Law", req["law"])
	}

	want := model.TokenUsage{QueryTokens: 12, PromptTokens: 340, ResponseTokens: 85, TotalTokens: 425}
	if ans.Tokens != want {
		t.Errorf("Tokens = %+v, want %+v", ans.Tokens, want)
	}
	if ans.ElapsedTime != "2.31초" {
		t.Errorf("ElapsedTime = %q", ans.ElapsedTime)
	}
	if len(ans.ChatHistory) != 1 {
		t.Errorf("len(ChatHistory) = %d, want 1", len(ans.ChatHistory))
	}
}

func TestAsk_OmitLaw(t *testing.T) {
	var req map[string]any
	srv := newTestServer(t, http.StatusOK, okPayload, &req)
	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL, OmitLaw: true})

	if _, err := c.Ask(context.Background(), "q", model.CivilLaw); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if _, ok := req["law"]; ok {
		t.Errorf("law field sent with OmitLaw: %v", req)
	}
}

func TestAsk_MissingHistoryIsEmpty(t *testing.T) {
	srv := newTestServer(t, http.StatusOK,
		`{"answer":"a","elapsed_time":"1s","tokens":{"query_tokens":1,"prompt_tokens":1,"response_tokens":1,"total_tokens":2}}`, nil)
	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})

	ans, err := c.Ask(context.Background(), "q", model.CriminalLaw)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if ans.ChatHistory == nil || len(ans.ChatHistory) != 0 {
		t.Errorf("ChatHistory = %#v, want empty non-nil", ans.ChatHistory)
	}
}

func TestQuery_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorType
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`, ErrTypeStatus},
		{"bad request", http.StatusBadRequest, `{"error":"Invalid law type"}`, ErrTypeStatus},
		{"not json", http.StatusOK, `<html>oops</html>`, ErrTypeInvalidResponse},
		{"missing answer", http.StatusOK, `{"tokens":{"query_tokens":1,"prompt_tokens":1,"response_tokens":1,"total_tokens":2}}`, ErrTypeInvalidResponse},
		{"missing tokens", http.StatusOK, `{"answer":"a"}`, ErrTypeInvalidResponse},
		{"negative tokens", http.StatusOK, `{"answer":"a","tokens":{"query_tokens":-1,"prompt_tokens":1,"response_tokens":1,"total_tokens":2}}`, ErrTypeInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body, nil)
			c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})

			_, err := c.Query(context.Background(), QueryRequest{Question: "q", Law: "Criminal_Law"})
			if err == nil {
				t.Fatal("Query() error = nil, want error")
			}
			if got := ErrorTypeOf(err); got != tt.want {
				t.Errorf("ErrorTypeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuery_StatusCodeRecorded(t *testing.T) {
	srv := newTestServer(t, http.StatusServiceUnavailable, "", nil)
	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})

	_, err := c.Query(context.Background(), QueryRequest{Question: "q"})
	var ce *ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("error %v is not a *ClientError", err)
	}
	if ce.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", ce.StatusCode)
	}
}

func TestQuery_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: url, Timeout: 2 * time.Second})
	_, err := c.Query(context.Background(), QueryRequest{Question: "q"})
	if !IsUnreachable(err) {
		t.Errorf("IsUnreachable(%v) = false, want true", err)
	}
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("errors.Is(err, ErrUnreachable) = false")
	}
	if err := c.CheckReachable(context.Background()); !IsUnreachable(err) {
		t.Errorf("CheckReachable() = %v, want unreachable", err)
	}
}

func TestQuery_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Query(ctx, QueryRequest{Question: "q"})
	if !IsTimeout(err) {
		t.Errorf("IsTimeout(%v) = false, want true", err)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("errors.Is(err, ErrTimeout) = false")
	}
}

func TestErrorType_String(t *testing.T) {
	if ErrTypeInvalidResponse.String() != "invalid_response" {
		t.Errorf("String() = %q", ErrTypeInvalidResponse.String())
	}
	if ErrorType(99).String() != "unknown" {
		t.Errorf("String() = %q, want unknown", ErrorType(99).String())
	}
}
