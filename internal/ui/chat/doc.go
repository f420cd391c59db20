// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the question-and-answer view for the kiseha TUI.

The chat package implements the terminal front end of a legal Q&A session
using the Bubble Tea framework. It never owns session state: every change
goes through a session controller and the view renders the controller's
snapshots.

# Key Components

## Model (model.go)

The Model struct is the Bubble Tea model. It holds the session handle, the
last rendered snapshot and the widgets:
  - Category bar for the five law categories
  - Text input for the question
  - Viewport for the answer, token and history panels
  - Spinner while an answer is generated

## Update Loop (update.go)

Keyboard handling and the asynchronous parts of a submit. Enter starts the
submit synchronously and the dispatch runs as a tea.Cmd that resolves the
ticket and reports back with an AnswerMsg.

## View Rendering (view.go)

Header with the category bar, answer panel with elapsed time, token panel
with the four counters and the running history.

# Usage

	ctrl := session.NewController(client, session.Config{Category: model.CriminalLaw})
	m := chat.New(ctrl, chat.Options{Theme: styles.NewTheme("auto")})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}

Configuration reloads are delivered with p.Send(chat.ConfigChangedMsg{...}).
*/
package chat
