// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports documents to a standalone HTML page with embedded CSS.
type HTMLExporter struct {
	options *Options
	now     func() time.Time
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts, now: time.Now}
}

// Export converts a document to HTML. All document text is escaped.
func (e *HTMLExporter) Export(doc *Document) ([]byte, error) {
	if err := validate(doc); err != nil {
		return nil, err
	}

	l := labelsFor(doc.Locale)
	lang := "ko"
	if strings.HasPrefix(strings.ToLower(doc.Locale), "en") {
		lang = "en"
	}
	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString(fmt.Sprintf("<html lang=\"%s\">\n<head>\n", lang))
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(doc.Title)))
	sb.WriteString("    <meta name=\"generator\" content=\"kiseha\">\n")
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n<div class=\"container\">\n", theme))

	sb.WriteString(fmt.Sprintf("<header><h1>%s</h1>\n", html.EscapeString(l.Heading)))
	if e.options.IncludeMetadata {
		sb.WriteString("<div class=\"metadata\">")
		sb.WriteString(fmt.Sprintf("<span>%s</span>", html.EscapeString(doc.SessionID)))
		if !doc.CreatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("<span>%s</span>", formatTimestamp(doc.CreatedAt)))
		}
		if total := doc.TotalTokens(); total > 0 {
			sb.WriteString(fmt.Sprintf("<span>%s: %d</span>", html.EscapeString(l.Tokens), total))
		}
		sb.WriteString("</div>\n")
	}
	sb.WriteString("</header>\n<main>\n")

	for _, entry := range doc.Entries {
		sb.WriteString("<section class=\"turn\">\n")
		sb.WriteString(fmt.Sprintf("<div class=\"question\"><h2>%s</h2>%s</div>\n",
			html.EscapeString(l.Question), paragraphs(entry.Question)))
		sb.WriteString(fmt.Sprintf("<div class=\"answer\"><h2>%s</h2>%s</div>\n",
			html.EscapeString(l.Answer), paragraphs(entry.Answer)))
		if e.options.IncludeMetadata {
			if line := usageLine(entry, l, doc.Locale); line != "" {
				sb.WriteString(fmt.Sprintf("<div class=\"stats\">%s</div>\n", html.EscapeString(line)))
			}
		}
		sb.WriteString("</section>\n")
	}

	sb.WriteString("</main>\n")
	sb.WriteString(fmt.Sprintf("<footer>%s %s</footer>\n",
		html.EscapeString(l.Footer), formatTimestamp(e.now())))
	sb.WriteString("</div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// paragraphs escapes text and splits it on blank lines.
func paragraphs(text string) string {
	var sb strings.Builder
	for _, block := range strings.Split(strings.TrimSpace(text), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		escaped := html.EscapeString(block)
		sb.WriteString("<p>")
		sb.WriteString(strings.ReplaceAll(escaped, "\n", "<br>"))
		sb.WriteString("</p>")
	}
	return sb.String()
}

const css = `    <style>
        * { box-sizing: border-box; }
        body { margin: 0; font-family: "Noto Sans KR", "Apple SD Gothic Neo", sans-serif; line-height: 1.7; }
        .dark-theme { background: #16161e; color: #c0caf5; }
        .light-theme { background: #fafafa; color: #24283b; }
        .container { max-width: 860px; margin: 0 auto; padding: 2rem 1.25rem; }
        header h1 { margin: 0 0 .5rem; font-size: 1.6rem; }
        .metadata span { margin-right: 1rem; opacity: .7; font-size: .9rem; }
        .turn { margin: 2rem 0; padding-bottom: 1.5rem; border-bottom: 1px solid rgba(127,127,127,.3); }
        .turn h2 { font-size: .85rem; text-transform: uppercase; letter-spacing: .05em; opacity: .6; margin: 1rem 0 .25rem; }
        .question p { font-weight: 600; }
        .stats { font-size: .8rem; opacity: .6; }
        footer { margin-top: 3rem; font-size: .8rem; opacity: .6; text-align: center; }
    </style>
`
