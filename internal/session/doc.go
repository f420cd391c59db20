// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the query session controller.
//
// A session holds the selected law category, the single in-flight question,
// the most recent answer with its usage counters, and the running chat
// history. All mutation goes through a Controller; observers only ever see
// deep-copied State snapshots.
//
// # Key Types
//
//   - Controller: single writer for the session state
//   - Dispatcher: sends one question at a time to an Answerer
//   - Reducer: pure transforms from one State to the next
//   - Ticket: the pending half of a two-phase submit
//
// # Usage
//
// Submit in one call:
//
//	ctrl := session.NewController(client, session.Config{})
//	state, err := ctrl.SubmitQuestion(ctx, "정당방위의 요건은?")
//
// Or in two phases, so the "generating" state can be rendered before the
// answer arrives:
//
//	ticket, err := ctrl.Begin("정당방위의 요건은?")
//	if err != nil {
//	    return // blank question or already submitting
//	}
//	render(ctrl.Snapshot())
//	render(ticket.Resolve(ctx))
package session
