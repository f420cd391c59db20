// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the transcript archive for kiseha.
package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
)

const (
	// recordTimeout bounds a single archive write.
	recordTimeout = 5 * time.Second

	// recordQueueSize is how many finished turns may wait for the writer.
	recordQueueSize = 32
)

// ErrRecorderBusy is remembered when a turn is dropped because the write
// queue is full.
var ErrRecorderBusy = errors.New("transcript queue full")

// Saver persists one transcript. *TranscriptStore implements it.
type Saver interface {
	Save(ctx context.Context, t *Transcript) error
}

// Recorder archives each successful answer of one session. Its Observe
// method is meant to be passed to session.Controller.Subscribe. Writes
// happen on a background goroutine so Observe never waits on the database;
// Close drains the queue.
type Recorder struct {
	store     Saver
	sessionID string
	logger    *slog.Logger

	queue chan *Transcript
	done  chan struct{}

	mu         sync.Mutex
	closed     bool
	lastStatus session.Status
	lastCat    model.LawCategory
	saved      int
	lastErr    error
}

// NewRecorder creates a recorder writing under sessionID and starts its
// writer. Call Close when the session ends.
func NewRecorder(store Saver, sessionID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		store:     store,
		sessionID: sessionID,
		logger:    logger.With("component", "transcripts"),
		queue:     make(chan *Transcript, recordQueueSize),
		done:      make(chan struct{}),
	}
	go r.run()
	return r
}

// Observe queues the turn when s is the completion of a submission.
// Failures are logged and remembered; they never reach the session.
func (r *Recorder) Observe(s session.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.lastStatus
	r.lastStatus = s.Status
	if s.Status == session.StatusSubmitting && prev != session.StatusSubmitting {
		r.lastCat = s.Category
	}
	if prev != session.StatusSubmitting || s.Status != session.StatusSuccess || r.closed {
		return
	}

	t := &Transcript{
		SessionID: r.sessionID,
		Category:  r.lastCat,
		Question:  s.PendingQuestion,
		Answer:    s.LastAnswer,
		Usage:     s.LastUsage,
		Elapsed:   s.LastElapsed,
	}
	select {
	case r.queue <- t:
	default:
		r.lastErr = ErrRecorderBusy
		r.logger.Warn("archive queue full, turn not recorded", "law", t.Category.Code())
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for t := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		err := r.store.Save(ctx, t)
		cancel()

		r.mu.Lock()
		if err != nil {
			r.lastErr = err
			r.logger.Warn("archive write failed", "error", err)
		} else {
			r.saved++
			r.logger.Debug("turn archived", "id", t.ID, "law", t.Category.Code())
		}
		r.mu.Unlock()
	}
}

// Close stops accepting turns and waits for queued writes to finish.
// It is safe to call more than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

// Saved returns how many turns were archived.
func (r *Recorder) Saved() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved
}

// Err returns the most recent write error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}
