// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the question-and-answer view for the kiseha TUI.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/ui/styles"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/util"
)

// historyAnswerRunes caps each history answer preview.
const historyAnswerRunes = 240

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
		m.renderHelp(),
	)
}

// updateViewport resizes the viewport and refreshes its content.
func (m *Model) updateViewport() {
	helpRows := 0
	if m.help.ShowAll {
		helpRows = len(m.keyMap.Laws) - 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(3, m.height-chromeHeight-helpRows)
	m.input.Width = calculateContentWidth(m.width, 8)
	m.help.Width = m.width
	m.viewport.SetContent(m.renderBody())
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	t := m.theme
	title := t.HeaderTitle.Render(m.labels.Title) + " " + t.HeaderSubtitle.Render(m.labels.Subtitle)

	bar := make([]string, 0, len(model.Categories()))
	for i, c := range model.Categories() {
		label := c.LocalizedLabel(m.locale)
		if t.GetLayoutMode() != styles.LayoutNarrow {
			label = t.CategoryKey.Render(fmt.Sprintf("%d", i+1)) + " " + label
		}
		if c == m.state.Category {
			bar = append(bar, t.CategoryActive.Render(label))
		} else {
			bar = append(bar, t.CategoryInactive.Render(label))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		t.Header.Width(m.width).Render(title),
		lipgloss.JoinHorizontal(lipgloss.Top, bar...),
	)
}

// =============================================================================
// BODY
// =============================================================================

// renderBody builds the scrollable part: question, answer, tokens, history.
func (m Model) renderBody() string {
	t := m.theme
	s := m.state
	width := calculateContentWidth(m.width, 4)

	if s.Status == session.StatusIdle && len(s.History) == 0 {
		return t.AnswerPending.Render(wrapText(m.labels.Welcome, width))
	}

	var sections []string
	if s.PendingQuestion != "" {
		sections = append(sections, t.Question.Width(width).Render(
			fmt.Sprintf("%s · %s\n%s", m.labels.QuestionTag, s.Category.LocalizedLabel(m.locale), s.PendingQuestion)))
	}
	if s.Status != session.StatusIdle {
		sections = append(sections, m.renderAnswer(width))
	}
	if m.showTokens && s.Status != session.StatusIdle {
		sections = append(sections, m.renderTokens())
	}
	if len(s.History) > 0 {
		sections = append(sections, m.renderHistory(width))
	}
	return strings.Join(sections, "\n")
}

// renderAnswer renders the answer panel for the current status.
func (m Model) renderAnswer(width int) string {
	t := m.theme
	s := m.state
	inner := calculateContentWidth(width, 4)

	var body string
	switch s.Status {
	case session.StatusSubmitting:
		body = m.spinner.View() + " " + t.AnswerPending.Render(s.LastAnswer)
	case session.StatusError:
		body = t.AnswerError.Render(styles.StatusIndicators.Error + " " + s.LastAnswer)
	default:
		if m.renderMarkdown {
			body = m.markdown.render(s.LastAnswer, t.GlamourStyle(), inner)
		} else {
			body = wrapText(s.LastAnswer, inner)
		}
		if s.LastElapsed != "" {
			body += "\n" + t.Elapsed.Render(m.labels.Elapsed+": "+s.LastElapsed)
		}
	}
	return t.AnswerPanel.Width(width).Render(body)
}

// renderTokens renders the four usage counters.
func (m Model) renderTokens() string {
	t := m.theme
	u := m.state.LastUsage
	cell := func(label string, n int, total bool) string {
		value := t.TokenValue
		if total {
			value = t.TokenTotal
		}
		return t.TokenLabel.Render(label+" ") + value.Render(util.FormatCount(n))
	}
	cells := []string{
		cell(m.labels.Query, u.QueryTokens, false),
		cell(m.labels.Prompt, u.PromptTokens, false),
		cell(m.labels.Response, u.ResponseTokens, false),
		cell(m.labels.Total, u.TotalTokens, true),
	}
	if t.GetLayoutMode() == styles.LayoutNarrow {
		return t.TokenPanel.Render(strings.Join(cells, "\n"))
	}
	return t.TokenPanel.Render(strings.Join(cells, "   "))
}

// renderHistory lists the session's turns oldest first.
func (m Model) renderHistory(width int) string {
	t := m.theme
	lines := []string{t.HistoryTitle.Render(fmt.Sprintf("%s (%d)", m.labels.History, len(m.state.History)))}
	for i, turn := range m.state.History {
		q := fmt.Sprintf("Q%d. %s", i+1, util.SingleLine(turn.Question))
		lines = append(lines, t.HistoryQuestion.Render(wrapText(q, width)))
		a := util.TruncateRunes(util.SingleLine(turn.Answer), historyAnswerRunes)
		lines = append(lines, t.HistoryAnswer.Render(wrapText(a, calculateContentWidth(width, 2))))
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// INPUT, STATUS AND HELP
// =============================================================================

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(calculateContentWidth(m.width, 2)).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	t := m.theme

	var left string
	switch {
	case m.toast != "":
		switch m.toastLevel {
		case toastSuccess:
			left = styles.RenderSuccess(m.toast)
		case toastError:
			left = styles.RenderError(m.toast)
		default:
			left = styles.RenderInfo(m.toast)
		}
	case m.usage != nil:
		left = t.StatusText.Render(m.usage.StatusLine())
	default:
		left = t.StatusText.Render(m.state.Status.String())
	}

	id := m.session.ID()
	if len(id) > 8 {
		id = id[:8]
	}
	right := t.StatusText.Render(id)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return t.StatusBar.Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderHelp() string {
	return m.theme.Help.Render(m.help.View(m.keyMap))
}
