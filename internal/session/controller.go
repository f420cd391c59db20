// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the query session controller.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds configuration for a Controller.
type Config struct {
	// Category is the initial law category (default: CriminalLaw)
	Category model.LawCategory

	// Policy decides how service history is merged (default: replace)
	Policy HistoryPolicy

	// Locale selects the placeholder and retry texts (default: Korean)
	Locale string

	// Logger receives transition and dispatch logs (default: slog.Default())
	Logger *slog.Logger
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns a session's state and is its only writer.
//
// Observers registered with Subscribe receive every published snapshot in
// order. They run on the goroutine that caused the change and must not
// call Controller methods that mutate state.
type Controller struct {
	mu       sync.Mutex
	state    State
	reducer  Reducer
	dispatch *Dispatcher
	logger   *slog.Logger

	id        string
	startTime time.Time

	// notifyMu is taken before mu is released so snapshots are delivered
	// in the order they were produced.
	notifyMu  sync.Mutex
	observers map[int]func(State)
	nextObsID int
}

// NewController creates a controller in the Idle state.
func NewController(answerer Answerer, cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	category := cfg.Category
	if !category.Valid() {
		category = model.DefaultCategory
	}

	id := uuid.NewString()
	logger = logger.With("session", id)

	return &Controller{
		state:     NewState(category),
		reducer:   Reducer{Policy: cfg.Policy, Messages: MessagesFor(cfg.Locale)},
		dispatch:  NewDispatcher(answerer, logger),
		logger:    logger,
		id:        id,
		startTime: time.Now(),
		observers: make(map[int]func(State)),
	}
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// StartTime returns when the session was created.
func (c *Controller) StartTime() time.Time {
	return c.startTime
}

// Policy returns the history policy in effect.
func (c *Controller) Policy() HistoryPolicy {
	return c.reducer.Policy
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Subscribe registers fn for every published state and returns a function
// that removes it.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.notifyMu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	c.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.notifyMu.Lock()
			delete(c.observers, id)
			c.notifyMu.Unlock()
		})
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// SelectCategory changes the category for subsequent submissions.
// It is accepted in every status and does not affect an outstanding request.
func (c *Controller) SelectCategory(category model.LawCategory) error {
	if !category.Valid() {
		return fmt.Errorf("invalid law category %d", int(category))
	}

	c.mu.Lock()
	if c.state.Category == category {
		c.mu.Unlock()
		return nil
	}
	c.state.Category = category
	c.logger.Debug("category selected", "law", category.Code(), "status", c.state.Status)
	c.publishLocked()
	return nil
}

// Begin validates text and, if accepted, moves the session to Submitting
// and publishes that state. The returned Ticket performs the dispatch.
//
// A blank question returns ErrBlankQuestion and a second question while
// one is outstanding returns ErrSubmitInFlight. Neither changes state.
func (c *Controller) Begin(text string) (*Ticket, error) {
	question := NormalizeQuestion(text)
	if question == "" {
		return nil, ErrBlankQuestion
	}

	c.mu.Lock()
	if c.state.Submitting() {
		c.mu.Unlock()
		c.logger.Debug("submit ignored while submitting")
		return nil, ErrSubmitInFlight
	}

	category := c.state.Category
	c.state = c.reducer.Start(c.state, question)
	c.logger.Debug("state transition", "status", c.state.Status, "law", category.Code())
	c.publishLocked()

	return &Ticket{c: c, question: question, category: category}, nil
}

// SubmitQuestion runs both phases of a submit and returns the final state.
func (c *Controller) SubmitQuestion(ctx context.Context, text string) (State, error) {
	ticket, err := c.Begin(text)
	if err != nil {
		return c.Snapshot(), err
	}
	return ticket.Resolve(ctx), nil
}

// finish applies the outcome of the ticket's dispatch.
func (c *Controller) finish(question string, out Outcome) State {
	c.mu.Lock()
	if out.Answer != nil && c.reducer.HistoryRegressed(c.state, out.Answer) {
		c.logger.Warn("service history does not continue local history, keeping local",
			"local", len(c.state.History),
			"service", len(out.Answer.ChatHistory))
	}
	c.state = c.reducer.Apply(c.state, question, out)
	c.logger.Debug("state transition", "status", c.state.Status, "history", len(c.state.History))
	snap := c.state.Clone()
	c.publishLocked()
	return snap
}

// publishLocked hands a snapshot to every observer. It must be called with
// c.mu held and releases it.
func (c *Controller) publishLocked() {
	snap := c.state.Clone()
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	for _, id := range slices.Sorted(maps.Keys(c.observers)) {
		c.observers[id](snap.Clone())
	}
}

// =============================================================================
// TICKET
// =============================================================================

// Ticket is an accepted question whose answer has not been applied yet.
type Ticket struct {
	c        *Controller
	question string
	category model.LawCategory
	once     sync.Once
	result   State
}

// Question returns the normalized question text.
func (t *Ticket) Question() string {
	return t.question
}

// Category returns the category the question was submitted under.
func (t *Ticket) Category() model.LawCategory {
	return t.category
}

// Resolve dispatches the question and applies the outcome. It blocks until
// the service answers or ctx ends. Later calls return the first result.
func (t *Ticket) Resolve(ctx context.Context) State {
	t.once.Do(func() {
		out := t.c.dispatch.Submit(ctx, t.question, t.category)
		t.result = t.c.finish(t.question, out)
	})
	return t.result.Clone()
}
