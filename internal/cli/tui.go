// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Starts the interactive TUI.
package cli

import (
	"context"
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/config"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/ui/chat"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/ui/styles"
)

// runTUI runs the chat view until the user quits. The configuration file,
// if any, is watched and ui settings are applied live.
func (a *app) runTUI(cmd *cobra.Command) error {
	if !IsTTY() || !IsStdoutTTY() {
		return &ValidationError{
			Field:   "terminal",
			Reason:  "the interactive UI needs a terminal",
			Example: `kiseha ask "질문" or kiseha repl`,
		}
	}

	cfg := a.cfg
	kit := newSessionKit(cfg, newClient(cfg))
	defer func() {
		if err := kit.Close(); err != nil {
			slog.Warn("session cleanup failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := chat.New(kit.Ctrl, chat.Options{
		Theme:          styles.NewTheme(cfg.UI.Theme),
		Locale:         cfg.UI.Locale,
		ShowTokens:     cfg.ShowTokens(),
		RenderMarkdown: cfg.RenderMarkdown(),
		Usage:          kit.Usage,
		Context:        ctx,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	if path := a.activeConfigPath(); path != "" {
		go func() {
			err := config.Watch(ctx, path, config.DefaultWatchDebounce, func(c *config.Config) {
				p.Send(chat.ConfigChangedMsg{Config: c})
			})
			if err != nil {
				slog.Warn("config watch stopped", "path", path, "error", err)
			}
		}()
	}

	slog.Info("tui started", "session", kit.Ctrl.ID(), "url", cfg.Service.BaseURL, "law", cfg.DefaultCategory().Code())
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
