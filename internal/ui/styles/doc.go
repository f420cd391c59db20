// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the kiseha TUI.
//
// All colors are Lip Gloss AdaptiveColors, so the same palette works on
// light and dark terminals. The theme mode ("dark", "light", "auto") decides
// which half is used; "auto" asks the terminal through termenv.
//
// # Key Types
//
//   - Theme: every styled component of the chat view
//   - SpinnerConfig: frame set for the "generating" spinner
//   - LayoutMode: narrow, medium or wide terminal
//
// # Usage
//
//	theme := styles.NewTheme("auto")
//	theme.SetSize(width, height)
//	s := theme.CategoryActive.Render("형법")
package styles
