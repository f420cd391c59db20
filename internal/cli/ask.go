// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
//
// Examples:
//
//	kiseha ask "음주운전 처벌 기준은?" --law Road_Traffic_Act
//	echo "해고 예고 기간은?" | kiseha ask --law 4 --json
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
)

// askResult is the --json payload of ask.
type askResult struct {
	Session     string           `json:"session"`
	Question    string           `json:"question"`
	Law         string           `json:"law"`
	Answer      string           `json:"answer"`
	ElapsedTime string           `json:"elapsed_time"`
	Tokens      model.TokenUsage `json:"tokens"`
}

func newAskCmd(a *app) *cobra.Command {
	var (
		jsonOut bool
		raw     bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and print the answer",
		Long: `Ask one question and print the answer.

The question is the joined arguments, or stdin when no arguments are given.
The exit status is 5 when the service did not answer.`,
		Example: `  kiseha ask "절도죄의 형량은?"
  kiseha ask --law Civil_Law "계약 해제 요건은?"
  echo "해고 예고 기간은?" | kiseha ask --law 4 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if strings.TrimSpace(question) == "" && !isTerminal(cmd.InOrStdin()) {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read question from stdin: %w", err)
				}
				question = string(data)
			}

			kit := newSessionKit(a.cfg, newClient(a.cfg))
			defer func() {
				if err := kit.Close(); err != nil {
					slog.Warn("session cleanup failed", "error", err)
				}
			}()

			state, err := kit.Ctrl.SubmitQuestion(cmd.Context(), question)
			if errors.Is(err, session.ErrBlankQuestion) {
				return NewValidationError("question", "", "question is blank")
			}
			if err != nil {
				return err
			}

			if jsonOut {
				return OutputJSON(cmd.OutOrStdout(), "ask", func() (interface{}, error) {
					if state.Status != session.StatusSuccess {
						return nil, ErrAnswerFailed
					}
					return askResult{
						Session:     kit.Ctrl.ID(),
						Question:    state.PendingQuestion,
						Law:         state.Category.Code(),
						Answer:      state.LastAnswer,
						ElapsedTime: state.LastElapsed,
						Tokens:      state.LastUsage,
					}, nil
				})
			}

			printer := newAnswerPrinter(cmd.OutOrStdout(), a.cfg.UI.Locale, a.cfg.RenderMarkdown() && !raw, a.cfg.ShowTokens())
			if state.Status != session.StatusSuccess {
				printer.out = cmd.ErrOrStderr()
				printer.Print(state)
				return ErrAnswerFailed
			}
			printer.Print(state)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the answer as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the answer without markdown rendering")
	return cmd
}
