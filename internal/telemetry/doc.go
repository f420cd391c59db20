// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry tallies token usage reported by the answering service.
//
// A UsageTracker subscribes to a session controller and records every
// completed dispatch: successful answers with their token counters, and
// failures as a count. Counters come from the service verbatim.
//
// # Key Types
//
//   - UsageTracker: per-session tally, fed by session snapshots
//   - SessionUsage: aggregated counters for one session
//   - UsageStorage: JSON files under ~/.kiseha/usage/
//
// # Usage
//
//	tracker := telemetry.NewUsageTracker(ctrl.ID(), storage)
//	unsubscribe := ctrl.Subscribe(tracker.Observe)
//	defer unsubscribe()
//	defer tracker.Save()
//
// # Privacy
//
// Usage data is local-only. Only the first 100 characters of a question
// are kept, and only for the largest queries of a session.
package telemetry
