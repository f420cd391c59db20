// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the question-and-answer view for the kiseha TUI.
//
// This file defines keyboard bindings for the chat interface. Plain keys
// type into the question field, so every action uses a modifier, a
// function key or tab.
package chat

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	// Laws holds one binding per category, in model.Categories() order.
	Laws []key.Binding

	NextLaw  key.Binding
	PrevLaw  key.Binding
	Submit   key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Copy     key.Binding
	Export   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	cats := model.Categories()
	laws := make([]key.Binding, len(cats))
	for i, c := range cats {
		laws[i] = key.NewBinding(
			key.WithKeys(fmt.Sprintf("alt+%d", i+1), fmt.Sprintf("f%d", i+2)),
			key.WithHelp(fmt.Sprintf("M-%d", i+1), c.Label()),
		)
	}

	return KeyMap{
		Laws: laws,
		NextLaw: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "next law"),
		),
		PrevLaw: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-Tab", "previous law"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "ask"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy answer"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "export"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("Esc/C-c", "quit"),
		),
	}
}

// LawFor returns the category bound to a Laws index.
func (k KeyMap) LawFor(idx int) (model.LawCategory, bool) {
	cats := model.Categories()
	if idx < 0 || idx >= len(cats) || idx >= len(k.Laws) {
		return 0, false
	}
	return cats[idx], true
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the one-line help.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NextLaw, k.Copy, k.Export, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the expanded help, grouped in columns.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.Laws,
		{k.NextLaw, k.PrevLaw, k.PageUp, k.PageDown},
		{k.Submit, k.Copy, k.Export},
		{k.Help, k.Quit},
	}
}
