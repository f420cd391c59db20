// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the transcript archive for kiseha.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
)

// =============================================================================
// TYPES
// =============================================================================

// Transcript is one archived question/answer pair.
type Transcript struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Category  model.LawCategory `json:"law"`
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Usage     model.TokenUsage  `json:"tokens"`
	Elapsed   string            `json:"elapsed_time"`
	CreatedAt time.Time         `json:"created_at"`
}

// Turn returns the transcript as a history turn.
func (t Transcript) Turn() model.ChatTurn {
	return model.ChatTurn{Question: t.Question, Answer: t.Answer}
}

// SessionSummary aggregates the transcripts of one session.
type SessionSummary struct {
	SessionID   string    `json:"session_id"`
	Turns       int       `json:"turns"`
	TotalTokens int       `json:"total_tokens"`
	FirstAt     time.Time `json:"first_at"`
	LastAt      time.Time `json:"last_at"`
	Preview     string    `json:"preview"` // first question
}

// =============================================================================
// ERRORS
// =============================================================================

// TranscriptError represents an archive lookup error.
// It can be compared using errors.Is.
type TranscriptError struct {
	Message string
}

func (e *TranscriptError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing transcript errors.
func (e *TranscriptError) Is(target error) bool {
	t, ok := target.(*TranscriptError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

var (
	// ErrTranscriptNotFound is returned when an ID or session has no rows.
	ErrTranscriptNotFound = &TranscriptError{Message: "transcript not found"}

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = &TranscriptError{Message: "transcript store closed"}
)

// =============================================================================
// STORE
// =============================================================================

const schema = `
PRAGMA busy_timeout = 5000;
CREATE TABLE IF NOT EXISTS transcripts (
	id              TEXT PRIMARY KEY,
	session_id      TEXT NOT NULL,
	law             TEXT NOT NULL,
	question        TEXT NOT NULL,
	answer          TEXT NOT NULL,
	query_tokens    INTEGER NOT NULL DEFAULT 0,
	prompt_tokens   INTEGER NOT NULL DEFAULT 0,
	response_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens    INTEGER NOT NULL DEFAULT 0,
	elapsed         TEXT NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_session ON transcripts(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_transcripts_created ON transcripts(created_at);
`

// TranscriptStore is a sqlite-backed archive of answered turns.
// It is safe for concurrent use.
type TranscriptStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the archive at path.
func Open(path string) (*TranscriptStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// One writer at a time; the TUI and a concurrent `kiseha history` are the
	// only expected clients.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &TranscriptStore{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (s *TranscriptStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *TranscriptStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Ping verifies database connectivity.
func (s *TranscriptStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	return s.db.PingContext(ctx)
}

// Save inserts t, assigning an ID and timestamp when they are unset.
func (s *TranscriptStore) Save(ctx context.Context, t *Transcript) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO transcripts (id, session_id, law, question, answer,
		query_tokens, prompt_tokens, response_tokens, total_tokens, elapsed, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.Category.Code(), t.Question, t.Answer,
		t.Usage.QueryTokens, t.Usage.PromptTokens, t.Usage.ResponseTokens, t.Usage.TotalTokens,
		t.Elapsed, t.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, session_id, law, question, answer,
	query_tokens, prompt_tokens, response_tokens, total_tokens, elapsed, created_at
	FROM transcripts`

// Get returns the transcript with the given ID.
func (s *TranscriptStore) Get(ctx context.Context, id string) (*Transcript, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	t, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTranscriptNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns a session's transcripts in submission order.
func (s *TranscriptStore) List(ctx context.Context, sessionID string) ([]Transcript, error) {
	return s.query(ctx, selectColumns+` WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`, sessionID)
}

// Search returns the most recent transcripts whose question or answer
// contains text, newest first. limit <= 0 means 50.
func (s *TranscriptStore) Search(ctx context.Context, text string, limit int) ([]Transcript, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(strings.TrimSpace(text)) + "%"
	return s.query(ctx, selectColumns+`
		WHERE question LIKE ? ESCAPE '\' OR answer LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, pattern, pattern, limit)
}

// Sessions summarizes archived sessions, most recently active first.
// limit <= 0 means no limit.
func (s *TranscriptStore) Sessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT t.session_id, COUNT(*), COALESCE(SUM(t.total_tokens), 0),
		MIN(t.created_at), MAX(t.created_at),
		(SELECT question FROM transcripts f WHERE f.session_id = t.session_id
			ORDER BY f.created_at ASC, f.rowid ASC LIMIT 1)
	FROM transcripts t
	GROUP BY t.session_id
	ORDER BY MAX(t.created_at) DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var first, last int64
		if err := rows.Scan(&sum.SessionID, &sum.Turns, &sum.TotalTokens, &first, &last, &sum.Preview); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sum.FirstAt = time.UnixMilli(first)
		sum.LastAt = time.UnixMilli(last)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// ResolveSession expands a session ID prefix to the full ID. An empty
// prefix selects the most recent session.
func (s *TranscriptStore) ResolveSession(ctx context.Context, prefix string) (string, error) {
	if s.db == nil {
		return "", ErrStoreClosed
	}

	var id string
	var err error
	if prefix == "" {
		err = s.db.QueryRowContext(ctx,
			`SELECT session_id FROM transcripts ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT session_id FROM transcripts WHERE session_id LIKE ? ESCAPE '\'
			 ORDER BY created_at DESC LIMIT 1`, escapeLike(prefix)+"%").Scan(&id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrTranscriptNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve session: %w", err)
	}
	return id, nil
}

// History returns a session's archived turns as chat history.
func (s *TranscriptStore) History(ctx context.Context, sessionID string) ([]model.ChatTurn, error) {
	ts, err := s.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]model.ChatTurn, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Turn())
	}
	return out, nil
}

// DeleteSession removes every transcript of a session and reports how many
// rows were removed.
func (s *TranscriptStore) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	return s.exec(ctx, `DELETE FROM transcripts WHERE session_id = ?`, sessionID)
}

// DeleteBefore removes transcripts created before cutoff.
func (s *TranscriptStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.exec(ctx, `DELETE FROM transcripts WHERE created_at < ?`, cutoff.UnixMilli())
}

// Count returns the number of archived transcripts.
func (s *TranscriptStore) Count(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, ErrStoreClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transcripts: %w", err)
	}
	return n, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *TranscriptStore) exec(ctx context.Context, query string, args ...any) (int64, error) {
	if s.db == nil {
		return 0, ErrStoreClosed
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete transcripts: %w", err)
	}
	return res.RowsAffected()
}

func (s *TranscriptStore) query(ctx context.Context, query string, args ...any) ([]Transcript, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	out := []Transcript{}
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row scanner) (*Transcript, error) {
	var t Transcript
	var law string
	var created int64
	err := row.Scan(&t.ID, &t.SessionID, &law, &t.Question, &t.Answer,
		&t.Usage.QueryTokens, &t.Usage.PromptTokens, &t.Usage.ResponseTokens, &t.Usage.TotalTokens,
		&t.Elapsed, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan transcript row: %w", err)
	}
	// Rows written by a newer build may carry an unknown code; keep the row.
	if cat, err := model.ParseLawCategory(law); err == nil {
		t.Category = cat
	}
	t.CreatedAt = time.UnixMilli(created)
	return &t, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
