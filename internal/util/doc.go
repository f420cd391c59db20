// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the kiseha packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateWidth, StringWidth, PadRight: column-aware helpers for Hangul
//   - TruncateRunes: rune-safe truncation with ellipsis
//
// Formatting:
//   - FormatCount: token counters with thousands separators
//   - FormatAge: relative timestamps for archived turns
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	label := util.TruncateWidth(question, 40)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
