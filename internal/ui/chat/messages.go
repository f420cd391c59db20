// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the question-and-answer view for the kiseha TUI.
//
// This file defines the Bubble Tea message types used by the chat interface.
// All message types are immutable.
package chat

import (
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/config"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
)

// =============================================================================
// SUBMIT MESSAGES
// =============================================================================

// AnswerMsg signals that a ticket resolved. State is the snapshot the
// controller produced when it applied the outcome.
type AnswerMsg struct {
	State session.State
}

// =============================================================================
// CLIPBOARD AND EXPORT MESSAGES
// =============================================================================

// CopyDoneMsg reports the result of copying the last answer.
type CopyDoneMsg struct {
	Error error
}

// ExportDoneMsg reports the result of an export.
type ExportDoneMsg struct {
	Path  string
	Error error
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigChangedMsg carries a configuration reloaded from disk.
// Only the ui settings are applied to a running view.
type ConfigChangedMsg struct {
	Config *config.Config
}

// =============================================================================
// TOAST MESSAGES
// =============================================================================

// toastLevel selects the indicator of a status message.
type toastLevel int

const (
	toastInfo toastLevel = iota
	toastSuccess
	toastError
)

// toastExpiredMsg clears the status message with the given sequence number.
type toastExpiredMsg struct {
	seq int
}
