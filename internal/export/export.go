// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes legal Q&A sessions to files.
package export

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a document in one format.
type Exporter interface {
	// Export converts a document to the target format and returns the content.
	Export(doc *Document) ([]byte, error)

	// FileExtension returns the file extension (e.g., ".md").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ErrEmptyDocument is returned when there is nothing to export.
var ErrEmptyDocument = errors.New("session has no answered questions")

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata adds frontmatter and per-answer usage lines.
	IncludeMetadata bool

	// Theme for HTML export ("light" or "dark").
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		OpenAfterExport: false,
		IncludeMetadata: true,
		Theme:           "dark",
	}
}

// Formats lists the accepted format names.
func Formats() []string {
	return []string{"markdown", "json", "html"}
}

// ForFormat returns the exporter for a format name ("md", "markdown",
// "json", "html").
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s (want one of %s)",
			format, strings.Join(Formats(), ", "))
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a document with exporter and returns the output
// file path.
func ExportToFile(doc *Document, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(doc)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("kiseha_%s_%s%s",
		sanitizeFilename(doc.Title),
		time.Now().Format("20060102_150405"),
		exporter.FileExtension(),
	)

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		// Non-fatal: the file was written.
		_ = openFile(outputPath)
	}

	return outputPath, nil
}

// ExportFormat is ForFormat followed by ExportToFile.
func ExportFormat(doc *Document, format string, opts *Options) (string, error) {
	exporter, err := ForFormat(format, opts)
	if err != nil {
		return "", err
	}
	return ExportToFile(doc, exporter, opts)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func validate(doc *Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	if len(doc.Entries) == 0 {
		return ErrEmptyDocument
	}
	return nil
}

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > 40 {
		runes = runes[:40]
	}
	s = string(runes)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return "session"
	}
	return b.String()
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// labels holds the fixed strings of rendered exports.
type labels struct {
	Heading  string
	Question string
	Answer   string
	Law      string
	Elapsed  string
	Tokens   string
	Footer   string
}

func labelsFor(locale string) labels {
	if strings.HasPrefix(strings.ToLower(locale), "en") {
		return labels{
			Heading:  "Legal Q&A session",
			Question: "Question",
			Answer:   "Answer",
			Law:      "Law",
			Elapsed:  "Elapsed",
			Tokens:   "Tokens",
			Footer:   "Exported from kiseha on",
		}
	}
	return labels{
		Heading:  "법률 상담 기록",
		Question: "질문",
		Answer:   "답변",
		Law:      "법률",
		Elapsed:  "소요 시간",
		Tokens:   "토큰",
		Footer:   "kiseha에서 내보냄:",
	}
}

// usageLine renders "Law: … | Elapsed: … | Tokens: q/p/r (total)" for an
// entry, or "" when it carries no metadata.
func usageLine(e Entry, l labels, locale string) string {
	var parts []string
	if e.Category != nil {
		parts = append(parts, fmt.Sprintf("%s: %s", l.Law, e.Category.LocalizedLabel(locale)))
	}
	if e.Elapsed != "" {
		parts = append(parts, fmt.Sprintf("%s: %s", l.Elapsed, e.Elapsed))
	}
	if e.Tokens != nil && !e.Tokens.IsZero() {
		parts = append(parts, fmt.Sprintf("%s: %d/%d/%d (%s)", l.Tokens,
			e.Tokens.QueryTokens, e.Tokens.PromptTokens, e.Tokens.ResponseTokens,
			util.FormatCount(e.Tokens.TotalTokens)))
	}
	return strings.Join(parts, " | ")
}
