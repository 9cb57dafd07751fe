// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package editor provides the split-pane Markdown editor TUI.
//
// The left pane is a textarea bound to a document.Document; it only accepts
// input while edit mode is on. The right pane shows the document rendered
// for the terminal while preview mode is on, followed by the state of each
// diagram block. Diagram renders, saves and exports run as Bubble Tea
// commands; their results come back as messages.
//
// # Keys
//
//   - C-e / C-p      toggle edit / preview mode
//   - C-s            save (new documents are named after their title)
//   - C-o            open a Markdown file from the working directory
//   - C-x d|p|h|m    export to Word, PDF, HTML or Markdown
//   - C-y            copy the rendered HTML to the clipboard
//   - C-r            render every diagram again
//   - ? or F1        help
//   - C-q            quit
//
// Export failures open a blocking alert dismissed with Enter or Esc.
package editor
