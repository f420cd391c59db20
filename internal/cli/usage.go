// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// usage.go - Token usage over recent days.
package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/telemetry"
)

func newUsageCmd(a *app) *cobra.Command {
	var (
		days    int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show token usage over recent days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return NewValidationError("days", fmt.Sprint(days), "must be positive")
			}
			dir, err := usageDir()
			if err != nil {
				return err
			}
			us, err := telemetry.NewUsageStorage(dir)
			if err != nil {
				return err
			}
			trends, err := telemetry.Trends(us, days)
			if err != nil {
				return err
			}

			if jsonOut {
				return NewJSONResponse("usage", trends).Print(cmd.OutOrStdout())
			}
			printTrends(cmd, trends, a.cfg.UI.Locale)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "number of days to include")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func printTrends(cmd *cobra.Command, t *telemetry.UsageTrends, locale string) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Usage, last %d days", t.Days)))
	fmt.Fprintln(w, RenderLabel("Sessions")+ValueStyle.Render(humanize.Comma(int64(t.Sessions))))
	fmt.Fprintln(w, RenderLabel("Answers")+ValueStyle.Render(humanize.Comma(int64(t.Answers))))
	fmt.Fprintln(w, RenderLabel("Total tokens")+HighlightStyle.Render(humanize.Comma(int64(t.Tokens.TotalTokens))))

	if len(t.LawBreakdown) > 0 {
		fmt.Fprintln(w, SectionStyle.Render("By law"))
		for _, code := range slices.Sorted(maps.Keys(t.LawBreakdown)) {
			label := code
			if cat, err := model.ParseLawCategory(code); err == nil {
				label = cat.LocalizedLabel(locale)
			}
			fmt.Fprintln(w, RenderLabel(label)+humanize.Comma(int64(t.LawBreakdown[code].TotalTokens)))
		}
	}

	if len(t.DailyBreakdown) > 0 {
		fmt.Fprintln(w, SectionStyle.Render("By day"))
		for _, d := range t.DailyBreakdown {
			fmt.Fprintln(w, RenderLabel(d.Date.Format("2006-01-02"))+
				fmt.Sprintf("%d answers, %s tokens", d.Answers, humanize.Comma(int64(d.Tokens))))
		}
	}
}
