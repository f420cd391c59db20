// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// laws.go - Lists the law categories.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/util"
)

// lawRow is one --json entry of laws.
type lawRow struct {
	Index   int    `json:"index"`
	Code    string `json:"code"`
	Korean  string `json:"ko"`
	English string `json:"en"`
	Default bool   `json:"default"`
}

func newLawsCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "laws",
		Short: "List the law categories",
		Long: `List the law categories in display order.

Any column identifies a category for --law and /law: the index, the
wire code or the name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			def := a.cfg.DefaultCategory()
			rows := make([]lawRow, 0, len(model.Categories()))
			for i, c := range model.Categories() {
				rows = append(rows, lawRow{
					Index:   i + 1,
					Code:    c.Code(),
					Korean:  c.LocalizedLabel("ko"),
					English: c.LocalizedLabel("en"),
					Default: c == def,
				})
			}

			if jsonOut {
				return NewJSONResponse("laws", rows).Print(cmd.OutOrStdout())
			}
			w := cmd.OutOrStdout()
			for _, r := range rows {
				line := fmt.Sprintf("%d  %s  %s  %s", r.Index,
					util.PadRight(r.Code, 20), util.PadRight(r.Korean, 12), r.English)
				if r.Default {
					line = HighlightStyle.Render(line + "  *")
				}
				fmt.Fprintln(w, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}
