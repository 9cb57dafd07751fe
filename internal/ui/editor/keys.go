// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings of the editor.
type KeyMap struct {
	ToggleEdit    key.Binding
	TogglePreview key.Binding
	Save          key.Binding
	Open          key.Binding
	Export        key.Binding
	CopyHTML      key.Binding
	RetryDiagrams key.Binding
	Help          key.Binding
	Quit          key.Binding

	// Export chord, active after Export
	ExportDocx     key.Binding
	ExportPDF      key.Binding
	ExportHTML     key.Binding
	ExportMarkdown key.Binding

	// Overlays
	Up      key.Binding
	Down    key.Binding
	Confirm key.Binding
	Dismiss key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		ToggleEdit: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "toggle edit"),
		),
		TogglePreview: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "toggle preview"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "save"),
		),
		Open: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "open"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x d/p/h/m", "export"),
		),
		CopyHTML: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy HTML"),
		),
		RetryDiagrams: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "retry diagrams"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "f1"),
			key.WithHelp("?/F1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "ctrl+c"),
			key.WithHelp("C-q", "quit"),
		),
		ExportDocx: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Word"),
		),
		ExportPDF: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "PDF"),
		),
		ExportHTML: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "HTML"),
		),
		ExportMarkdown: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Markdown"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "ctrl+k"),
			key.WithHelp("up", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "ctrl+j"),
			key.WithHelp("down", "next"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "confirm"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "close"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ToggleEdit, k.TogglePreview, k.Save, k.Export, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the help overlay, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Modes
		{k.ToggleEdit, k.TogglePreview, k.RetryDiagrams},
		// Files
		{k.Save, k.Open, k.CopyHTML},
		// Export
		{k.Export, k.ExportDocx, k.ExportPDF, k.ExportHTML, k.ExportMarkdown},
		// General
		{k.Help, k.Quit},
	}
}
