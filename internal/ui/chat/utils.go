// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the question-and-answer view for the kiseha TUI.
package chat

import (
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
)

// =============================================================================
// LABELS
// =============================================================================

// labels are the fixed texts of the view.
type labels struct {
	Title       string
	Subtitle    string
	Placeholder string
	Welcome     string
	QuestionTag string
	Elapsed     string
	Query       string
	Prompt      string
	Response    string
	Total       string
	History     string
	NoAnswer    string
	Copied      string
	Exported    string
	Failed      string
	Reloaded    string
	Busy        string
}

var koreanLabels = labels{
	Title:       "KISEHA",
	Subtitle:    "법률 상담",
	Placeholder: "법률 질문을 입력하세요",
	Welcome:     "법 분야를 고르고 질문을 입력한 뒤 Enter를 누르세요.",
	QuestionTag: "질문",
	Elapsed:     "소요 시간",
	Query:       "질문 토큰",
	Prompt:      "프롬프트 토큰",
	Response:    "응답 토큰",
	Total:       "총 토큰",
	History:     "대화 기록",
	NoAnswer:    "복사할 답변이 없습니다",
	Copied:      "답변을 클립보드에 복사했습니다",
	Exported:    "내보내기 완료: ",
	Failed:      "실패: ",
	Reloaded:    "설정을 다시 불러왔습니다",
	Busy:        "답변을 기다리는 중입니다",
}

var englishLabels = labels{
	Title:       "KISEHA",
	Subtitle:    "Legal Q&A",
	Placeholder: "Type a legal question",
	Welcome:     "Pick a law, type a question and press Enter.",
	QuestionTag: "Question",
	Elapsed:     "Elapsed",
	Query:       "Query tokens",
	Prompt:      "Prompt tokens",
	Response:    "Response tokens",
	Total:       "Total tokens",
	History:     "History",
	NoAnswer:    "No answer to copy",
	Copied:      "Answer copied to clipboard",
	Exported:    "Exported: ",
	Failed:      "Failed: ",
	Reloaded:    "Configuration reloaded",
	Busy:        "Still waiting for an answer",
}

var labelMatcher = language.NewMatcher([]language.Tag{language.Korean, language.English})

// labelsFor picks the label set for a locale, Korean unless it matches English.
func labelsFor(locale string) labels {
	tag, err := language.Parse(locale)
	if err != nil {
		return koreanLabels
	}
	if _, idx, conf := labelMatcher.Match(tag); conf != language.No && idx == 1 {
		return englishLabels
	}
	return koreanLabels
}

// =============================================================================
// CLIPBOARD UTILITIES
// =============================================================================

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// copyToClipboard copies the given text to the system clipboard.
func copyToClipboard(text string) error {
	return writeClipboard(text)
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer caches a glamour renderer for one style and width.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// render formats text as markdown. On any renderer error the text is
// wrapped and returned unformatted.
func (r *markdownRenderer) render(text, style string, width int) string {
	if width < 20 {
		width = 20
	}
	if r.renderer == nil || r.style != style || r.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return wrapText(text, width)
		}
		r.renderer, r.style, r.width = tr, style, width
	}
	out, err := r.renderer.Render(text)
	if err != nil {
		return wrapText(text, width)
	}
	return strings.Trim(out, "\n")
}

// =============================================================================
// TEXT UTILITIES
// =============================================================================

// calculateContentWidth returns totalWidth minus margin, at least 3.
func calculateContentWidth(totalWidth, margin int) int {
	contentWidth := totalWidth - margin
	if contentWidth < 3 {
		contentWidth = 3
	}
	return contentWidth
}

// wrapText wraps text to a maximum display width. Hangul and other wide
// runes count as two columns. Existing line breaks are kept and long lines
// break at the last space when there is one.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}

	var result strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			result.WriteString("\n")
		}

		runes := []rune(line)
		for runewidth.StringWidth(string(runes)) > maxWidth {
			cut, width, lastSpace := 0, 0, -1
			for cut < len(runes) {
				w := runewidth.RuneWidth(runes[cut])
				if width+w > maxWidth {
					break
				}
				if runes[cut] == ' ' {
					lastSpace = cut
				}
				width += w
				cut++
			}
			if cut == 0 {
				cut = 1
			}
			if lastSpace > 0 && cut < len(runes) && runes[cut] != ' ' {
				cut = lastSpace
			}
			result.WriteString(strings.TrimRight(string(runes[:cut]), " "))
			result.WriteString("\n")
			runes = []rune(strings.TrimLeft(string(runes[cut:]), " "))
		}
		result.WriteString(string(runes))
	}
	return result.String()
}
