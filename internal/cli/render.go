// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Prints answers for the line-oriented commands.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/util"
)

// answerPrinter writes finished states to a terminal or a pipe.
type answerPrinter struct {
	out      io.Writer
	locale   string
	markdown bool
	tokens   bool
	renderer *glamour.TermRenderer
}

// newAnswerPrinter renders markdown only when asked to and out is a terminal.
func newAnswerPrinter(out io.Writer, locale string, markdown, tokens bool) *answerPrinter {
	p := &answerPrinter{out: out, locale: locale, tokens: tokens}
	if markdown && ColorsEnabled() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(min(GetTerminalWidth()-4, 100)),
		)
		if err == nil {
			p.renderer, p.markdown = r, true
		}
	}
	return p
}

// Print writes the answer or retry message of a terminal state.
func (p *answerPrinter) Print(s session.State) {
	if s.Status == session.StatusError {
		fmt.Fprintln(p.out, ErrorStyle.Render(s.LastAnswer))
		return
	}

	text := s.LastAnswer
	if p.markdown {
		if rendered, err := p.renderer.Render(text); err == nil {
			text = strings.Trim(rendered, "\n")
		}
	}
	fmt.Fprintln(p.out, text)
	fmt.Fprintln(p.out, DimStyle.Render(p.footer(s)))
}

// footer is the law, elapsed time and token line under an answer.
func (p *answerPrinter) footer(s session.State) string {
	parts := []string{s.Category.LocalizedLabel(p.locale)}
	if s.LastElapsed != "" {
		parts = append(parts, s.LastElapsed)
	}
	if p.tokens {
		u := s.LastUsage
		parts = append(parts, fmt.Sprintf("tokens %s/%s/%s, total %s",
			util.FormatCount(u.QueryTokens),
			util.FormatCount(u.PromptTokens),
			util.FormatCount(u.ResponseTokens),
			util.FormatCount(u.TotalTokens)))
	}
	return strings.Join(parts, " · ")
}
