// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the query session controller.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
)

//go:generate mockgen -destination=mock_answerer_test.go -package=session . Answerer

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBlankQuestion is returned for empty or whitespace-only input.
	// It is a local validation failure and never reaches the service.
	ErrBlankQuestion = errors.New("question is blank")

	// ErrDispatchInFlight is returned when a dispatch is already outstanding.
	ErrDispatchInFlight = errors.New("a dispatch is already in flight")

	// ErrSubmitInFlight is returned when the session is already submitting.
	ErrSubmitInFlight = errors.New("a question is already being answered")

	// ErrTransport covers every service failure: unreachable, non-2xx
	// status or a malformed payload. The cause is logged, not returned.
	ErrTransport = errors.New("answering service request failed")
)

// =============================================================================
// ANSWERER
// =============================================================================

// Answerer is the remote answering service.
type Answerer interface {
	Ask(ctx context.Context, question string, category model.LawCategory) (*model.Answer, error)
}

// NormalizeQuestion trims surrounding whitespace and converts the text to
// NFC, so decomposed Hangul from some input methods is sent composed.
func NormalizeQuestion(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher sends questions to an Answerer, at most one at a time.
// It never retries.
type Dispatcher struct {
	answerer Answerer
	logger   *slog.Logger
	inFlight atomic.Bool
}

// NewDispatcher creates a dispatcher. A nil logger uses slog.Default().
func NewDispatcher(answerer Answerer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{answerer: answerer, logger: logger}
}

// InFlight reports whether a dispatch is outstanding.
func (d *Dispatcher) InFlight() bool {
	return d.inFlight.Load()
}

// Submit normalizes question and sends it scoped to category.
// Blank input yields ErrBlankQuestion without contacting the service.
func (d *Dispatcher) Submit(ctx context.Context, question string, category model.LawCategory) Outcome {
	q := NormalizeQuestion(question)
	if q == "" {
		return Outcome{Err: ErrBlankQuestion}
	}

	if !d.inFlight.CompareAndSwap(false, true) {
		return Outcome{Err: ErrDispatchInFlight}
	}
	defer d.inFlight.Store(false)

	start := time.Now()
	ans, err := d.answerer.Ask(ctx, q, category)
	if err != nil {
		d.logger.Debug("dispatch failed",
			"law", category.Code(),
			"duration", time.Since(start),
			"error", err)
		return Outcome{Err: ErrTransport}
	}
	if ans == nil {
		d.logger.Debug("dispatch returned no answer", "law", category.Code())
		return Outcome{Err: ErrTransport}
	}

	d.logger.Debug("dispatch completed",
		"law", category.Code(),
		"duration", time.Since(start),
		"total_tokens", ans.Tokens.TotalTokens)
	return Outcome{Answer: ans}
}
