// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling of the mdsplit editor.

All colors use Lip Gloss AdaptiveColor so the editor follows the terminal's
light or dark background.

# Colors (colors.go)

  - Purple - focused pane border and selections
  - Cyan - headings and key hints
  - Emerald - success and switched-on mode flags
  - Amber - warnings, unsaved changes and diagrams in flight
  - Rose - errors and the alert overlay

Status helpers pair every color with an ASCII indicator ([OK], [X], [!], [i])
for colorblind users.

# Theme (theme.go)

Theme holds the lipgloss styles of every editor element: header, the two
panes, status bar, mode badges, diagram status lines, the alert overlay, the
file picker and the help box. SetSize records the terminal size and
PaneWidths splits it between editor and preview.

# Usage

	theme := styles.NewTheme()
	theme.SetSize(msg.Width, msg.Height)
	left, right := theme.PaneWidths(true)
*/
package styles
