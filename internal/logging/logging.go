// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

// Options controls where and how much is logged.
type Options struct {
	// Verbose enables debug level.
	Verbose bool

	// File, when set, receives the log instead of stderr. The TUI uses this
	// so log lines never land on the alternate screen.
	File string
}

// Setup installs a charmbracelet/log backed slog logger as the default.
// Terminal output is colored text; anything else is JSON.
// The returned function closes the log file, if any.
func Setup(opts Options) (func() error, error) {
	var out io.Writer = os.Stderr
	tty := isTerminal(os.Stderr)
	closeFn := func() error { return nil }

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return closeFn, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return closeFn, fmt.Errorf("open log file: %w", err)
		}
		out, tty, closeFn = f, false, f.Close
	}

	slog.SetDefault(slog.New(NewHandler(out, opts.Verbose, tty)))
	return closeFn, nil
}

// NewHandler returns a charmbracelet/log handler writing to w.
func NewHandler(w io.Writer, verbose, text bool) *charmlog.Logger {
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		Prefix:          "kiseha",
	})

	if verbose {
		handler.SetLevel(charmlog.DebugLevel)
	} else {
		handler.SetLevel(charmlog.InfoLevel)
	}

	if !text {
		handler.SetFormatter(charmlog.JSONFormatter)
	}
	return handler
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
