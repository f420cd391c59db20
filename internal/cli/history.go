// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Browse the transcript archive.
//
// Examples:
//
//	kiseha history                 List recent sessions
//	kiseha history show 3f2a       Show one session (prefix match)
//	kiseha history search 음주운전   Search questions and answers
//	kiseha history prune --older-than 720h
package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/storage"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/util"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "Browse archived sessions",
		Long: `Browse the transcript archive.

Turns are archived only when storage.transcript_enabled is true.
Session arguments accept any unique prefix of the session ID.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(a, func(store *storage.TranscriptStore) error {
				sessions, err := store.Sessions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return NewJSONResponse("history", sessions).Print(cmd.OutOrStdout())
				}
				printSessions(cmd.OutOrStdout(), sessions)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of sessions to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")

	cmd.AddCommand(
		newHistoryShowCmd(a),
		newHistorySearchCmd(a),
		newHistoryDeleteCmd(a),
		newHistoryPruneCmd(a),
	)
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show [session]",
		Short: "Show the turns of a session (default: latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(a, func(store *storage.TranscriptStore) error {
				id, err := store.ResolveSession(cmd.Context(), firstArg(args))
				if err != nil {
					return err
				}
				turns, err := store.List(cmd.Context(), id)
				if err != nil {
					return err
				}
				if jsonOut {
					return NewJSONResponse("history show", turns).Print(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), TitleStyle.Render("session "+id))
				printTranscripts(cmd.OutOrStdout(), turns, a.cfg.UI.Locale, false)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newHistorySearchCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search archived questions and answers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(a, func(store *storage.TranscriptStore) error {
				found, err := store.Search(cmd.Context(), strings.Join(args, " "), limit)
				if err != nil {
					return err
				}
				if len(found) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), DimStyle.Render("no matches"))
					return nil
				}
				printTranscripts(cmd.OutOrStdout(), found, a.cfg.UI.Locale, true)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum matches")
	return cmd
}

func newHistoryDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session>",
		Short: "Delete an archived session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(a, func(store *storage.TranscriptStore) error {
				id, err := store.ResolveSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				n, err := store.DeleteSession(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %d turns of %s\n", RenderStatus("ok"), n, id)
				return nil
			})
		},
	}
}

func newHistoryPruneCmd(a *app) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete archived turns older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return NewValidationError("older-than", olderThan.String(), "must be positive")
			}
			return withArchive(a, func(store *storage.TranscriptStore) error {
				n, err := store.DeleteBefore(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s pruned %d turns\n", RenderStatus("ok"), n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age cutoff")
	return cmd
}

// =============================================================================
// HELPERS
// =============================================================================

// withArchive opens the existing archive for fn and closes it afterwards.
func withArchive(a *app, fn func(*storage.TranscriptStore) error) error {
	store, err := openExistingTranscripts(a.cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func printSessions(w io.Writer, sessions []storage.SessionSummary) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, DimStyle.Render("no archived sessions"))
		return
	}
	for _, s := range sessions {
		id := s.SessionID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "%s  %s  %3d turns  %8s tokens  %s\n",
			HighlightStyle.Render(id),
			DimStyle.Render(util.PadRight(util.FormatAge(s.LastAt), 10)),
			s.Turns,
			util.FormatCount(s.TotalTokens),
			util.TruncateWidth(util.SingleLine(s.Preview), 50))
	}
}

func printTranscripts(w io.Writer, ts []storage.Transcript, locale string, withSession bool) {
	for i, t := range ts {
		head := fmt.Sprintf("Q%d. [%s] %s", i+1, t.Category.LocalizedLabel(locale), t.CreatedAt.Format("2006-01-02 15:04"))
		if withSession && len(t.SessionID) >= 8 {
			head += " " + t.SessionID[:8]
		}
		fmt.Fprintln(w, SectionStyle.Render(head))
		fmt.Fprintln(w, t.Question)
		fmt.Fprintln(w, RenderSeparator(40))
		fmt.Fprintln(w, t.Answer)
		fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("%s · total %s tokens", t.Elapsed, util.FormatCount(t.Usage.TotalTokens))))
	}
}
