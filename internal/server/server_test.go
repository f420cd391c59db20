// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/lawqa"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	cfg.Logger = quietLogger()
	s := NewServer(cfg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postQuery(t *testing.T, url string, body any) (*http.Response, lawqa.QueryResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url+"/query", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out lawqa.QueryResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

// =============================================================================
// QUERY TESTS
// =============================================================================

func TestQuery_AnswersWithCategory(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp, out := postQuery(t, ts.URL, lawqa.QueryRequest{Question: "  정당방위 요건은?  ", Law: "Criminal_Law"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, out.Answer)
	require.NotNil(t, out.Tokens)

	assert.Contains(t, *out.Answer, "형법 제21조")
	assert.Contains(t, *out.Answer, "> 정당방위 요건은?")
	assert.Regexp(t, `^\d+\.\d{2}초$`, out.ElapsedTime)

	tok := *out.Tokens
	assert.Positive(t, tok.QueryTokens)
	assert.Positive(t, tok.PromptTokens)
	assert.Positive(t, tok.ResponseTokens)
	assert.Equal(t, tok.PromptTokens+tok.ResponseTokens, tok.TotalTokens)

	require.Len(t, out.ChatHistory, 1)
	assert.Equal(t, "정당방위 요건은?", out.ChatHistory[0].Question)
	assert.Equal(t, *out.Answer, out.ChatHistory[0].Answer)
}

func TestQuery_IsDeterministic(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	_, a := postQuery(t, ts.URL, lawqa.QueryRequest{Question: "해고 예고", Law: "Labor_Standards_Act"})
	_, b := postQuery(t, ts.URL, lawqa.QueryRequest{Question: "해고 예고", Law: "Labor_Standards_Act"})
	assert.Equal(t, *a.Answer, *b.Answer)
	assert.Equal(t, *a.Tokens, *b.Tokens)
	assert.Len(t, b.ChatHistory, 2)
}

func TestQuery_WithoutLawUsesGeneralScope(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp, out := postQuery(t, ts.URL, map[string]string{"question": "일반 질문"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, *out.Answer, "관련 법령 전반")
}

func TestQuery_Rejections(t *testing.T) {
	s, ts := newTestServer(t, Config{})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"question":`, http.StatusUnprocessableEntity},
		{"blank question", `{"question":"   ","law":"Civil_Law"}`, http.StatusUnprocessableEntity},
		{"unknown law", `{"question":"q","law":"Tax_Law"}`, http.StatusBadRequest},
		{"label instead of code", `{"question":"q","law":"민법"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			var detail map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
			assert.NotEmpty(t, detail["detail"])
		})
	}

	assert.Empty(t, s.History())
	assert.Equal(t, int64(len(tests)), s.Stats().Rejected)
}

func TestQuery_HistoryWindow(t *testing.T) {
	s, ts := newTestServer(t, Config{})

	var last lawqa.QueryResponse
	for i := 1; i <= HistoryWindow+3; i++ {
		_, last = postQuery(t, ts.URL, lawqa.QueryRequest{Question: fmt.Sprintf("q%d", i), Law: "Civil_Law"})
	}

	require.Len(t, last.ChatHistory, HistoryWindow)
	assert.Equal(t, "q4", last.ChatHistory[0].Question)
	assert.Equal(t, fmt.Sprintf("q%d", HistoryWindow+3), last.ChatHistory[HistoryWindow-1].Question)
	assert.Len(t, s.History(), HistoryWindow+3)

	s.ResetHistory()
	_, out := postQuery(t, ts.URL, lawqa.QueryRequest{Question: "fresh", Law: "Civil_Law"})
	assert.Len(t, out.ChatHistory, 1)
}

func TestQuery_ConcurrentRequestsKeepEveryTurn(t *testing.T) {
	s, ts := newTestServer(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := json.Marshal(lawqa.QueryRequest{Question: fmt.Sprintf("q%d", i), Law: "Criminal_Law"})
			resp, err := http.Post(ts.URL+"/query", "application/json", bytes.NewReader(body))
			if err == nil {
				resp.Body.Close()
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.History(), 8)
	assert.Equal(t, int64(8), s.Stats().Answers)
}

// =============================================================================
// HEALTH / MIDDLEWARE TESTS
// =============================================================================

func TestHealthAndRoot(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var h HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, Version, h.Version)

	root, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	root.Body.Close()
	assert.Equal(t, http.StatusOK, root.StatusCode)
}

func TestCORS_Preflight(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/query", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestRateLimit(t *testing.T) {
	_, ts := newTestServer(t, Config{RateLimit: 0.001, Burst: 2})

	codes := []int{}
	for i := 0; i < 3; i++ {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_DisabledAndPerIP(t *testing.T) {
	off := NewRateLimiter(0, 1)
	for i := 0; i < 100; i++ {
		require.True(t, off.Allow("1.2.3.4"))
	}

	rl := NewRateLimiter(0.001, 1)
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))
	assert.Equal(t, 2, rl.Clients())
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.7:5000", "", "203.0.113.7"},
		{"untrusted peer ignores header", "203.0.113.7:5000", "198.51.100.1", "203.0.113.7"},
		{"trusted proxy", "127.0.0.1:5000", "198.51.100.1, 10.0.0.1", "198.51.100.1"},
		{"trusted proxy bad header", "10.1.2.3:80", "not-an-ip", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}

func TestCountTokens(t *testing.T) {
	enc, err := encoder()
	require.NoError(t, err, "bundled cl100k_base ranks must load offline")

	assert.Equal(t, 0, countTokens(""))
	assert.Equal(t, 1, countTokens("hello"))
	assert.Equal(t, 2, countTokens("hello world"))
	assert.Equal(t, len(enc.Encode(systemPrompt, nil, nil)), countTokens(systemPrompt))

	korean := countTokens("음주운전 처벌 기준은?")
	assert.Positive(t, korean)
	assert.LessOrEqual(t, korean, len("음주운전 처벌 기준은?"))
	assert.Equal(t, korean, countTokens("음주운전 처벌 기준은?"))
}

// =============================================================================
// CLIENT INTEGRATION TESTS
// =============================================================================

func TestClientAgainstStub(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	client := lawqa.NewClientWithConfig(&lawqa.ClientConfig{BaseURL: ts.URL, Timeout: 5 * time.Second})

	require.NoError(t, client.CheckReachable(context.Background()))

	ans, err := client.Ask(context.Background(), "불심검문 거부 가능?", model.PoliceDutiesAct)
	require.NoError(t, err)
	assert.Contains(t, ans.Answer, "경찰관 직무집행법 제3조")
	assert.Equal(t, ans.Tokens.PromptTokens+ans.Tokens.ResponseTokens, ans.Tokens.TotalTokens)
	assert.Len(t, ans.ChatHistory, 1)
}

func TestClientTimeoutAgainstSlowStub(t *testing.T) {
	_, ts := newTestServer(t, Config{Latency: 500 * time.Millisecond})
	client := lawqa.NewClientWithConfig(&lawqa.ClientConfig{BaseURL: ts.URL, Timeout: 50 * time.Millisecond})

	_, err := client.Ask(context.Background(), "q", model.CriminalLaw)
	require.Error(t, err)
	assert.True(t, lawqa.IsTimeout(err))
}

func TestSessionAgainstStub(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	client := lawqa.NewClientWithConfig(&lawqa.ClientConfig{BaseURL: ts.URL, Timeout: 5 * time.Second})
	ctrl := session.NewController(client, session.Config{Category: model.CivilLaw, Logger: quietLogger()})

	st, err := ctrl.SubmitQuestion(context.Background(), "전세 사기 대응")
	require.NoError(t, err)
	assert.Equal(t, session.StatusSuccess, st.Status)
	assert.Contains(t, st.LastAnswer, "민법 제750조")

	require.NoError(t, ctrl.SelectCategory(model.RoadTrafficAct))
	st, err = ctrl.SubmitQuestion(context.Background(), "음주운전 처벌")
	require.NoError(t, err)
	assert.Len(t, st.History, 2)
	assert.Contains(t, st.LastAnswer, "도로교통법 제44조")
	assert.Equal(t, s.History(), st.History)
}

func TestSessionAgainstStub_KeepsTurnsPastTheWindow(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	client := lawqa.NewClientWithConfig(&lawqa.ClientConfig{BaseURL: ts.URL, Timeout: 5 * time.Second})
	ctrl := session.NewController(client, session.Config{Category: model.CriminalLaw, Logger: quietLogger()})

	total := HistoryWindow + 2
	for i := 1; i <= total; i++ {
		st, err := ctrl.SubmitQuestion(context.Background(), fmt.Sprintf("질문 %d", i))
		require.NoError(t, err)
		require.Equal(t, session.StatusSuccess, st.Status)
		require.Len(t, st.History, i)
	}

	st := ctrl.Snapshot()
	assert.Equal(t, "질문 1", st.History[0].Question)
	assert.Equal(t, s.History(), st.History)
}

func TestServeAndShutdown(t *testing.T) {
	s := NewServer(Config{Addr: "127.0.0.1:0", Logger: quietLogger()})
	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	// Wait for Serve to install the http.Server.
	require.Eventually(t, func() bool {
		s.srvMu.Lock()
		defer s.srvMu.Unlock()
		return s.server != nil
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-done)
}
