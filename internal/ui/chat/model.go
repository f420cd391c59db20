// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the question-and-answer view for the kiseha TUI.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/ui/styles"
)

// =============================================================================
// SESSION PORT
// =============================================================================

// Session is the part of session.Controller the view drives.
type Session interface {
	ID() string
	StartTime() time.Time
	Snapshot() session.State
	SelectCategory(category model.LawCategory) error
	Begin(text string) (*session.Ticket, error)
}

// StatusLiner supplies the usage summary shown in the status bar.
type StatusLiner interface {
	StatusLine() string
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a chat Model.
type Options struct {
	// Theme is the style set (default: auto-detected)
	Theme *styles.Theme

	// Locale selects the view labels (default: Korean)
	Locale string

	// ShowTokens shows the token panel
	ShowTokens bool

	// RenderMarkdown formats answers with glamour
	RenderMarkdown bool

	// ExportDir is where ctrl+s writes files (default: current directory)
	ExportDir string

	// Usage feeds the status bar; nil hides the usage summary
	Usage StatusLiner

	// Context bounds every dispatch (default: context.Background())
	Context context.Context
}

// toastDuration is how long a status message stays visible.
const toastDuration = 3 * time.Second

// chromeHeight is the number of rows outside the viewport:
// header (2), input box (3), status bar (1) and help (1).
const chromeHeight = 7

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	session Session
	state   session.State
	ctx     context.Context

	// Styling
	theme    *styles.Theme
	labels   labels
	locale   string
	markdown *markdownRenderer

	// Settings that live config reloads may change
	showTokens     bool
	renderMarkdown bool
	exportDir      string
	usage          StatusLiner

	// Dimensions
	width  int
	height int
	ready  bool

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	keyMap   KeyMap

	// Status message
	toast      string
	toastLevel toastLevel
	toastSeq   int
}

// New creates a chat model bound to a session.
func New(s Session, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeAuto)
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "."
	}
	lbl := labelsFor(opts.Locale)

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.Placeholder = lbl.Placeholder
	ti.CharLimit = 2000
	ti.Focus()

	vp := viewport.New(80, 20)
	// Letter keys belong to the question field.
	vp.KeyMap = viewport.KeyMap{
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
	}

	sp := spinner.New(
		spinner.WithSpinner(styles.ScaleSpinner.Spinner()),
		spinner.WithStyle(theme.AnswerPending),
	)

	m := Model{
		session:        s,
		state:          s.Snapshot(),
		ctx:            ctx,
		theme:          theme,
		labels:         lbl,
		locale:         opts.Locale,
		markdown:       &markdownRenderer{},
		showTokens:     opts.ShowTokens,
		renderMarkdown: opts.RenderMarkdown,
		exportDir:      exportDir,
		usage:          opts.Usage,
		width:          80,
		height:         24,
		viewport:       vp,
		input:          ti,
		spinner:        sp,
		help:           help.New(),
		keyMap:         DefaultKeyMap(),
	}
	m.updateViewport()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// State returns the last snapshot the view rendered.
func (m Model) State() session.State {
	return m.state
}

// Input returns the current question field text.
func (m Model) Input() string {
	return m.input.Value()
}

// Toast returns the current status message, "" when none is shown.
func (m Model) Toast() string {
	return m.toast
}
