// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports documents to Markdown with YAML frontmatter.
type MarkdownExporter struct {
	options *Options
	now     func() time.Time
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts, now: time.Now}
}

type frontmatter struct {
	Title     string   `yaml:"title"`
	Session   string   `yaml:"session"`
	Date      string   `yaml:"date,omitempty"`
	Questions int      `yaml:"questions"`
	Tokens    int      `yaml:"tokens,omitempty"`
	Laws      []string `yaml:"laws,omitempty"`
	Exported  string   `yaml:"exported"`
	Generator string   `yaml:"generator"`
}

// Export converts a document to Markdown.
func (e *MarkdownExporter) Export(doc *Document) ([]byte, error) {
	if err := validate(doc); err != nil {
		return nil, err
	}

	l := labelsFor(doc.Locale)
	now := e.now()
	var sb strings.Builder

	if e.options.IncludeMetadata {
		fm, err := yaml.Marshal(e.frontmatter(doc, now))
		if err != nil {
			return nil, fmt.Errorf("encode frontmatter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(fm)
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", l.Heading))

	for i, entry := range doc.Entries {
		sb.WriteString(fmt.Sprintf("## %d. %s\n\n", i+1, escapeMarkdown(singleLineTitle(entry.Question))))
		sb.WriteString(fmt.Sprintf("**%s**\n\n", l.Question))
		sb.WriteString(quote(entry.Question))
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf("**%s**\n\n", l.Answer))
		sb.WriteString(strings.TrimSpace(entry.Answer))
		sb.WriteString("\n\n")

		if e.options.IncludeMetadata {
			if line := usageLine(entry, l, doc.Locale); line != "" {
				sb.WriteString(fmt.Sprintf("<sub>%s</sub>\n\n", line))
			}
		}

		if i < len(doc.Entries)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*%s %s*\n", l.Footer, formatTimestamp(now)))

	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) frontmatter(doc *Document, now time.Time) frontmatter {
	fm := frontmatter{
		Title:     doc.Title,
		Session:   doc.SessionID,
		Questions: len(doc.Entries),
		Tokens:    doc.TotalTokens(),
		Exported:  now.Format(time.RFC3339),
		Generator: "kiseha",
	}
	if !doc.CreatedAt.IsZero() {
		fm.Date = doc.CreatedAt.Format(time.RFC3339)
	}

	seen := map[string]bool{}
	for _, entry := range doc.Entries {
		if entry.Category == nil {
			continue
		}
		code := entry.Category.Code()
		if !seen[code] {
			seen[code] = true
			fm.Laws = append(fm.Laws, code)
		}
	}
	return fm
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break formatting in headings.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

func singleLineTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > 60 {
		return string(runes[:57]) + "..."
	}
	return s
}

// quote renders text as a Markdown blockquote.
func quote(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight("> "+line, " ")
	}
	return strings.Join(lines, "\n")
}
