// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns Markdown into preview output.
//
// Renderer produces the HTML tree used by the preview server and the
// exporters: GitHub flavored Markdown with chroma highlighting, tables
// tagged with the md-table class, and diagram fences replaced by diagram
// placeholders that the diagram package fills in. Terminal produces the
// glamour rendition shown in the TUI preview pane.
package render
