// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/export"
)

// =============================================================================
// EXPORT HANDLERS
// =============================================================================

// exportCmd writes the session's answered turns as markdown. The document is
// built from the current snapshot before the command runs, so later answers
// are not included.
func (m Model) exportCmd() tea.Cmd {
	doc := export.FromState(m.session.ID(), m.session.StartTime(), m.session.Snapshot(), m.locale)
	opts := export.DefaultOptions()
	opts.OutputDir = m.exportDir
	opts.Theme = m.theme.GlamourStyle()

	return func() tea.Msg {
		path, err := export.ExportFormat(doc, "md", opts)
		return ExportDoneMsg{Path: path, Error: err}
	}
}
