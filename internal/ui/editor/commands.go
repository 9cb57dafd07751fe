// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/mdsplit/internal/diagram"
	"github.com/jeranaias/mdsplit/internal/document"
	"github.com/jeranaias/mdsplit/internal/export"
	"github.com/jeranaias/mdsplit/internal/render"
	"github.com/jeranaias/mdsplit/internal/workspace"
)

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// waitForDiagram delivers the next diagram state change.
func waitForDiagram(set *diagram.Set) tea.Cmd {
	if set == nil {
		return nil
	}
	return func() tea.Msg {
		return DiagramEventMsg(<-set.Events())
	}
}

// waitForFileChange delivers the next change of the watched file.
func waitForFileChange(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		path, ok := <-ch
		if !ok {
			return nil
		}
		return FileChangedMsg{Path: path}
	}
}

// =============================================================================
// FILE COMMANDS
// =============================================================================

// saveCmd writes the document to path, or to its own path when empty.
func saveCmd(doc *document.Document, path string) tea.Cmd {
	return func() tea.Msg {
		saved, err := doc.SaveFile(path)
		return SavedMsg{Path: saved, Err: err}
	}
}

// discoverCmd lists the Markdown files under root.
func discoverCmd(root string, limit int) tea.Cmd {
	return func() tea.Msg {
		opts := workspace.DefaultOptions()
		opts.MaxResults = limit
		files, err := workspace.Discover(root, opts)
		return FilesDiscoveredMsg{Files: files, Err: err}
	}
}

// defaultSavePath names a new file after the document title.
func defaultSavePath(root, title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return '-'
		}
		return -1
	}, strings.TrimSpace(title))
	if name == "" {
		name = "untitled"
	}
	return filepath.Join(root, name+".md")
}

// =============================================================================
// EXPORT COMMANDS
// =============================================================================

// exportCmd exports snap in format and writes the file.
func exportCmd(format export.Format, snap document.Snapshot, r *render.Renderer, opts *export.Options) tea.Cmd {
	return func() tea.Msg {
		exporter, err := export.New(format, r, opts)
		if err != nil {
			return ExportDoneMsg{Format: string(format), Err: err}
		}
		path, err := export.ExportToFile(snap, exporter, opts)
		return ExportDoneMsg{Format: string(format), Path: path, Err: err}
	}
}

// ClipboardFunc writes text to the system clipboard.
type ClipboardFunc func(text string) error

// systemClipboard writes through atotto/clipboard.
func systemClipboard(text string) error {
	return clipboard.WriteAll(text)
}

// copyHTMLCmd renders the document body and copies the HTML fragment.
func copyHTMLCmd(snap document.Snapshot, r *render.Renderer, lookup export.DiagramLookup, write ClipboardFunc) tea.Cmd {
	return func() tea.Msg {
		fragment, err := r.Render(snap.Body())
		if err != nil {
			return ClipboardMsg{Err: err}
		}
		if lookup != nil {
			if fragment, err = export.InlineDiagrams(fragment, lookup); err != nil {
				return ClipboardMsg{Err: err}
			}
		}
		if err := write(fragment); err != nil {
			return ClipboardMsg{Err: fmt.Errorf("clipboard: %w", err)}
		}
		return ClipboardMsg{Bytes: len(fragment)}
	}
}
