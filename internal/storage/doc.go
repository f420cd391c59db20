// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the transcript archive for kiseha.
//
// Every successful answer can be recorded into a local sqlite database
// together with its law category, token usage and elapsed time. Recording is
// opt-in (storage.transcript_enabled) and happens through a Recorder that
// subscribes to a session controller.
//
// # Key Types
//
//   - TranscriptStore: sqlite-backed archive of answered turns
//   - Transcript: one archived question/answer pair
//   - SessionSummary: per-session aggregate used for listing
//   - Recorder: session observer that queues completed turns for a background writer
//
// # Usage
//
//	store, err := storage.Open(cfg.TranscriptPath())
//	rec := storage.NewRecorder(store, ctrl.ID(), logger)
//	unsubscribe := ctrl.Subscribe(rec.Observe)
//	defer rec.Close()
//
// List and export later:
//
//	sessions, err := store.Sessions(ctx, 20)
//	turns, err := store.List(ctx, sessions[0].SessionID)
package storage
