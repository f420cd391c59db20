// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the question-and-answer view for the kiseha TUI.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/ui/styles"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// resolveCmd dispatches an accepted question and reports the final state.
func resolveCmd(ctx context.Context, ticket *session.Ticket) tea.Cmd {
	return func() tea.Msg {
		return AnswerMsg{State: ticket.Resolve(ctx)}
	}
}

// copyCmd copies text to the clipboard off the update loop.
func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return CopyDoneMsg{Error: copyToClipboard(text)}
	}
}

// expireToastCmd clears toast seq once it has been visible long enough.
func expireToastCmd(seq int) tea.Cmd {
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.theme.SetSize(msg.Width, msg.Height)
		m.updateViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case AnswerMsg:
		// A category picked while the answer was pending is newer than
		// msg.State, so re-read the controller.
		m.state = m.session.Snapshot()
		m.updateViewport()
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.state.Submitting() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateViewport()
		return m, cmd

	case CopyDoneMsg:
		if msg.Error != nil {
			return m.showToast(m.labels.Failed+msg.Error.Error(), toastError)
		}
		return m.showToast(m.labels.Copied, toastSuccess)

	case ExportDoneMsg:
		if msg.Error != nil {
			return m.showToast(m.labels.Failed+msg.Error.Error(), toastError)
		}
		return m.showToast(m.labels.Exported+msg.Path, toastSuccess)

	case ConfigChangedMsg:
		return m.applyConfig(msg)

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey routes a key press to an action or the question field.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	for i, b := range m.keyMap.Laws {
		if key.Matches(msg, b) {
			if cat, ok := m.keyMap.LawFor(i); ok {
				return m.selectCategory(cat)
			}
		}
	}

	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.NextLaw):
		return m.selectCategory(m.state.Category.Next())

	case key.Matches(msg, m.keyMap.PrevLaw):
		return m.selectCategory(m.state.Category.Prev())

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.Copy):
		if m.state.Status != session.StatusSuccess || m.state.LastAnswer == "" {
			return m.showToast(m.labels.NoAnswer, toastInfo)
		}
		return m, copyCmd(m.state.LastAnswer)

	case key.Matches(msg, m.keyMap.Export):
		return m, m.exportCmd()

	case key.Matches(msg, m.keyMap.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.updateViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp), key.Matches(msg, m.keyMap.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// ACTIONS
// =============================================================================

// selectCategory changes the category through the controller. It is
// allowed while an answer is pending.
func (m Model) selectCategory(cat model.LawCategory) (tea.Model, tea.Cmd) {
	if err := m.session.SelectCategory(cat); err != nil {
		return m.showToast(m.labels.Failed+err.Error(), toastError)
	}
	m.state = m.session.Snapshot()
	m.updateViewport()
	return m, nil
}

// submit starts a submit. Blank input is ignored silently. A submit while
// one is pending leaves the question in the field.
func (m Model) submit() (tea.Model, tea.Cmd) {
	ticket, err := m.session.Begin(m.input.Value())
	switch {
	case errors.Is(err, session.ErrBlankQuestion):
		return m, nil
	case errors.Is(err, session.ErrSubmitInFlight):
		return m.showToast(m.labels.Busy, toastInfo)
	case err != nil:
		return m.showToast(m.labels.Failed+err.Error(), toastError)
	}

	m.input.Reset()
	m.state = m.session.Snapshot()
	m.updateViewport()
	m.viewport.GotoTop()
	return m, tea.Batch(resolveCmd(m.ctx, ticket), m.spinner.Tick)
}

// showToast sets the status message and schedules its removal.
func (m Model) showToast(text string, level toastLevel) (tea.Model, tea.Cmd) {
	m.toastSeq++
	m.toast = text
	m.toastLevel = level
	return m, expireToastCmd(m.toastSeq)
}

// applyConfig re-applies the ui settings of a reloaded configuration.
func (m Model) applyConfig(msg ConfigChangedMsg) (tea.Model, tea.Cmd) {
	cfg := msg.Config
	if cfg == nil {
		return m, nil
	}

	if cfg.UI.Theme != m.theme.Mode {
		theme := styles.NewTheme(cfg.UI.Theme)
		theme.SetSize(m.width, m.height)
		m.theme = theme
		m.input.PromptStyle = theme.InputPrompt
		m.spinner.Style = theme.AnswerPending
	}
	m.locale = cfg.UI.Locale
	m.labels = labelsFor(cfg.UI.Locale)
	m.input.Placeholder = m.labels.Placeholder
	m.showTokens = cfg.ShowTokens()
	m.renderMarkdown = cfg.RenderMarkdown()

	m.updateViewport()
	return m.showToast(m.labels.Reloaded, toastInfo)
}
