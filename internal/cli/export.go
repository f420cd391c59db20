// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export.go - Export an archived session to a file.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/export"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/storage"
)

func newExportCmd(a *app) *cobra.Command {
	opts := export.DefaultOptions()
	var (
		format     string
		noMetadata bool
	)

	cmd := &cobra.Command{
		Use:   "export [session]",
		Short: "Export an archived session (default: latest)",
		Long: `Export an archived session as markdown, JSON or HTML.

Markdown files start with YAML frontmatter holding the session ID, date,
question count, token total and the laws asked about.`,
		Example: `  kiseha export
  kiseha export 3f2a --format json --output ~/exports
  kiseha export --format html --open`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.IncludeMetadata = !noMetadata
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return NewValidationError("format", format, "use one of "+strings.Join(export.Formats(), ", "))
			}

			return withArchive(a, func(store *storage.TranscriptStore) error {
				id, err := store.ResolveSession(cmd.Context(), firstArg(args))
				if err != nil {
					return err
				}
				turns, err := store.List(cmd.Context(), id)
				if err != nil {
					return err
				}

				doc := export.FromTranscripts(id, turns, a.cfg.UI.Locale)
				path, err := export.ExportToFile(doc, exporter, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", RenderStatus("ok"), path)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&format, "format", "f", "md", "output format: "+strings.Join(export.Formats(), ", "))
	flags.StringVarP(&opts.OutputDir, "output", "o", opts.OutputDir, "output directory")
	flags.BoolVar(&opts.OpenAfterExport, "open", false, "open the file after exporting")
	flags.BoolVar(&noMetadata, "no-metadata", false, "omit frontmatter and usage lines")
	flags.StringVar(&opts.Theme, "theme", opts.Theme, "HTML theme: light or dark")
	return cmd
}
