// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a local stand-in for the legal question-answering
// service.
//
// The stub speaks the same wire contract as the real service, so the client,
// the TUI and the integration tests can run without a retrieval backend. It
// composes a deterministic answer that cites the selected law, counts tokens,
// and keeps a process-wide conversation history.
//
// # Endpoints
//
//   - POST /query  - answer a question (body: {"question", "law"})
//   - GET  /health - liveness check
//   - GET  /stats  - request and token counters
//
// # Behavior
//
//   - The turn is appended to the history before the response is written
//   - Responses carry at most the last 10 turns
//   - Elapsed time is formatted as "%.2f초"
//   - total_tokens is prompt_tokens + response_tokens
//
// # Middleware
//
// CORS allows every origin. Requests are rate limited per client IP with
// golang.org/x/time/rate and logged through log/slog.
//
// # Usage
//
//	srv := server.NewServer(server.DefaultConfig())
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
