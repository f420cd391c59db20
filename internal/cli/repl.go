// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Line-mode session for terminals without a full-screen UI.
//
// Interactive Commands:
//
//	/law [code|1-5]     Show or change the law category
//	/history            Show the session history
//	/usage              Show token usage so far
//	/export [md|json|html]  Export the session
//	/help               Show available commands
//	/quit               Exit (also Ctrl+D)
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/config"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/export"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader reads one line of input after a prompt.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// ReplCLI provides input history and line editing for the REPL.
type ReplCLI struct {
	line        *liner.State
	historyFile string
}

// NewReplCLI creates a ReplCLI and loads saved input history.
func NewReplCLI() *ReplCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ReplCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "repl_history"),
	}
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// Prompt reads a line and remembers non-empty input.
func (c *ReplCLI) Prompt(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (c *ReplCLI) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// repl drives one session from typed lines.
type repl struct {
	kit       *sessionKit
	locale    string
	out       io.Writer
	printer   *answerPrinter
	exportDir string
}

func newReplCmd(a *app) *cobra.Command {
	var exportDir string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start a line-mode session",
		Long: `Start a line-mode session with input history.

Type a question and press Enter. Lines starting with / are commands;
type /help to list them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kit := newSessionKit(a.cfg, newClient(a.cfg))
			defer func() {
				if err := kit.Close(); err != nil {
					slog.Warn("session cleanup failed", "error", err)
				}
			}()

			r := &repl{
				kit:       kit,
				locale:    a.cfg.UI.Locale,
				out:       cmd.OutOrStdout(),
				printer:   newAnswerPrinter(cmd.OutOrStdout(), a.cfg.UI.Locale, a.cfg.RenderMarkdown(), a.cfg.ShowTokens()),
				exportDir: exportDir,
			}

			input := NewReplCLI()
			defer input.Close()
			return r.run(cmd.Context(), input)
		},
	}
	cmd.Flags().StringVar(&exportDir, "export-dir", ".", "directory for /export")
	return cmd
}

// run reads lines until EOF, Ctrl+C at the prompt or /quit.
func (r *repl) run(ctx context.Context, in lineReader) error {
	fmt.Fprintln(r.out, TitleStyle.Render("KISEHA")+" "+DimStyle.Render("/help for commands, Ctrl+D to exit"))

	for {
		line, err := in.Prompt(r.prompt())
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, liner.ErrPromptAborted) {
				return err
			}
			fmt.Fprintln(r.out)
			r.printSummary()
			return nil
		}

		more, err := r.handleLine(ctx, line)
		if err != nil {
			fmt.Fprintf(r.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
		if !more {
			r.printSummary()
			return nil
		}
	}
}

// prompt shows the active category. It carries no color codes because
// liner measures the prompt by its bytes.
func (r *repl) prompt() string {
	return fmt.Sprintf("[%s] kiseha> ", r.kit.Ctrl.Snapshot().Category.LocalizedLabel(r.locale))
}

// handleLine runs one line and reports whether the REPL should continue.
func (r *repl) handleLine(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return true, nil
	case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"):
		return false, nil
	case strings.HasPrefix(line, "/"):
		return r.handleCommand(line)
	}

	ticket, err := r.kit.Ctrl.Begin(line)
	if err != nil {
		return true, err
	}
	fmt.Fprintln(r.out, DimStyle.Render(r.kit.Ctrl.Snapshot().LastAnswer))
	r.printer.Print(ticket.Resolve(ctx))
	return true, nil
}

// handleCommand runs a slash command.
func (r *repl) handleCommand(line string) (bool, error) {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/q", "/exit":
		return false, nil

	case "/help", "/h":
		r.printHelp()

	case "/law", "/l":
		if len(args) == 0 {
			r.printLaws()
			return true, nil
		}
		cat, err := parseLawArg(args[0])
		if err != nil {
			return true, err
		}
		if err := r.kit.Ctrl.SelectCategory(cat); err != nil {
			return true, err
		}
		fmt.Fprintln(r.out, SuccessStyle.Render(cat.LocalizedLabel(r.locale)))

	case "/history":
		r.printHistory()

	case "/usage":
		fmt.Fprintln(r.out, r.kit.Usage.StatusLine())

	case "/export":
		format := "md"
		if len(args) > 0 {
			format = args[0]
		}
		path, err := r.export(format)
		if err != nil {
			return true, err
		}
		fmt.Fprintln(r.out, SuccessStyle.Render("exported: ")+path)

	default:
		return true, NewValidationError("command", name, "unknown command, try /help")
	}
	return true, nil
}

// export writes the session's answered turns.
func (r *repl) export(format string) (string, error) {
	ctrl := r.kit.Ctrl
	doc := export.FromState(ctrl.ID(), ctrl.StartTime(), ctrl.Snapshot(), r.locale)
	opts := export.DefaultOptions()
	opts.OutputDir = r.exportDir
	return export.ExportFormat(doc, format, opts)
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *repl) printHelp() {
	rows := [][2]string{
		{"/law [code|1-5]", "show or change the law category"},
		{"/history", "show the session history"},
		{"/usage", "show token usage so far"},
		{"/export [md|json|html]", "export the session"},
		{"/quit", "exit (also Ctrl+D)"},
	}
	for _, row := range rows {
		fmt.Fprintln(r.out, RenderLabel(row[0])+"  "+row[1])
	}
}

func (r *repl) printLaws() {
	current := r.kit.Ctrl.Snapshot().Category
	for i, c := range model.Categories() {
		line := fmt.Sprintf("%d  %-20s %s", i+1, c.Code(), c.LocalizedLabel(r.locale))
		if c == current {
			line = HighlightStyle.Render(line + "  *")
		}
		fmt.Fprintln(r.out, line)
	}
}

func (r *repl) printHistory() {
	s := r.kit.Ctrl.Snapshot()
	if len(s.History) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("(empty)"))
		return
	}
	for i, turn := range s.History {
		fmt.Fprintf(r.out, "%s %s\n", HighlightStyle.Render(fmt.Sprintf("Q%d.", i+1)), util.SingleLine(turn.Question))
		fmt.Fprintf(r.out, "    %s\n", util.TruncateWidth(util.SingleLine(turn.Answer), 120))
	}
}

func (r *repl) printSummary() {
	s := r.kit.Ctrl.Snapshot()
	if s.Status == session.StatusIdle {
		return
	}
	fmt.Fprintln(r.out, DimStyle.Render(r.kit.Usage.StatusLine()))
}
