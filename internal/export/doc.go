// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes legal Q&A sessions to files.
//
// A session is first gathered into a Document, either from the live
// session state or from archived transcripts, then rendered by an Exporter.
//
// # Supported Formats
//
//   - Markdown: YAML frontmatter plus one section per question
//   - JSON: the Document as-is, for re-import or scripting
//   - HTML: a standalone page with embedded CSS
//
// # Usage
//
//	doc := export.FromState(ctrl.ID(), ctrl.StartTime(), ctrl.Snapshot(), "ko")
//	path, err := export.ExportToFile(doc, export.NewMarkdownExporter(nil), opts)
package export
