// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the kiseha TUI.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	Mode         string
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER AND CATEGORY BAR
	// ==========================================================================

	Header           lipgloss.Style
	HeaderTitle      lipgloss.Style
	HeaderSubtitle   lipgloss.Style
	CategoryActive   lipgloss.Style
	CategoryInactive lipgloss.Style
	CategoryKey      lipgloss.Style

	// ==========================================================================
	// ANSWER PANEL
	// ==========================================================================

	Question      lipgloss.Style
	AnswerPanel   lipgloss.Style
	AnswerPending lipgloss.Style
	AnswerError   lipgloss.Style
	Elapsed       lipgloss.Style

	// ==========================================================================
	// TOKEN PANEL
	// ==========================================================================

	TokenPanel lipgloss.Style
	TokenLabel lipgloss.Style
	TokenValue lipgloss.Style
	TokenTotal lipgloss.Style

	// ==========================================================================
	// HISTORY LIST
	// ==========================================================================

	HistoryTitle    lipgloss.Style
	HistoryQuestion lipgloss.Style
	HistoryAnswer   lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	StatusBar      lipgloss.Style
	StatusText     lipgloss.Style
	Toast          lipgloss.Style
	Help           lipgloss.Style
}

// NewTheme creates a theme for mode ("dark", "light" or "auto").
// Unknown modes behave like "auto".
func NewTheme(mode string) *Theme {
	mode = strings.ToLower(strings.TrimSpace(mode))

	var isDark bool
	switch mode {
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	default:
		mode = ModeAuto
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		Mode:         mode,
		IsDark:       isDark,
		ColorProfile: termenv.EnvColorProfile(),
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Navy)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.CategoryActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(Navy).
		Background(NavyDeep).
		Padding(0, 1)

	t.CategoryInactive = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 1)

	t.CategoryKey = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Question = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Navy).
		PaddingLeft(1)

	t.AnswerPanel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.AnswerPending = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.AnswerError = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.Elapsed = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.TokenPanel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.TokenLabel = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.TokenValue = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.TokenTotal = lipgloss.NewStyle().
		Bold(true).
		Foreground(Gold)

	t.HistoryTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Navy).
		MarginTop(1)

	t.HistoryQuestion = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)

	t.HistoryAnswer = lipgloss.NewStyle().
		Foreground(TextSecondary).
		PaddingLeft(2)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Navy).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Navy).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusText = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Toast = lipgloss.NewStyle().
		Foreground(Emerald)

	t.Help = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// GlamourStyle returns the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // >= 100 columns
)
