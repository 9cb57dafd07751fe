// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mdsplit/internal/diagram"
	"github.com/jeranaias/mdsplit/internal/document"
	"github.com/jeranaias/mdsplit/internal/export"
	"github.com/jeranaias/mdsplit/internal/render"
	"github.com/jeranaias/mdsplit/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

var (
	keyCtrlE = tea.KeyMsg{Type: tea.KeyCtrlE}
	keyCtrlP = tea.KeyMsg{Type: tea.KeyCtrlP}
	keyCtrlS = tea.KeyMsg{Type: tea.KeyCtrlS}
	keyCtrlO = tea.KeyMsg{Type: tea.KeyCtrlO}
	keyCtrlX = tea.KeyMsg{Type: tea.KeyCtrlX}
	keyCtrlY = tea.KeyMsg{Type: tea.KeyCtrlY}
	keyCtrlQ = tea.KeyMsg{Type: tea.KeyCtrlQ}
	keyCtrlR = tea.KeyMsg{Type: tea.KeyCtrlR}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var svgEngine = diagram.EngineFunc(func(ctx context.Context, id, source string) (string, error) {
	return `<svg id="` + id + `"></svg>`, nil
})

type harness struct {
	m         Model
	doc       *document.Document
	diagrams  *diagram.Set
	root      string
	outDir    string
	clipboard string
}

func newHarness(t *testing.T, doc *document.Document) *harness {
	t.Helper()
	h := &harness{
		doc:    doc,
		root:   t.TempDir(),
		outDir: t.TempDir(),
	}
	h.diagrams = diagram.NewSet(svgEngine, nil)
	t.Cleanup(h.diagrams.Close)

	h.m = New(Options{
		Document: doc,
		Terminal: render.NewTerminal("notty"),
		Diagrams: h.diagrams,
		Export:   &export.Options{OutputDir: h.outDir, Theme: "light", PageSize: "A4"},
		Theme:    styles.NewTheme(),
		Root:     h.root,
		Clipboard: func(text string) error {
			h.clipboard = text
			return nil
		},
	})
	h.send(t, tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

func (h *harness) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := h.m.Update(msg)
	m, ok := next.(Model)
	require.True(t, ok)
	h.m = m
	return cmd
}

// run executes cmd and feeds its message back into the model.
func (h *harness) run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	h.send(t, msg)
	return msg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// =============================================================================
// MODES
// =============================================================================

func TestReadOnlyByDefault(t *testing.T) {
	h := newHarness(t, document.NewWithText("# Hi\n"))

	h.send(t, runes("x"))
	assert.Equal(t, "# Hi\n", h.doc.Text())
	assert.Contains(t, h.m.View(), "read-only")
}

func TestEditModeTyping(t *testing.T) {
	h := newHarness(t, document.NewWithText("# Hi"))

	h.send(t, keyCtrlE)
	assert.True(t, h.doc.Modes().EditMode)

	h.send(t, runes("!"))
	assert.Equal(t, "# Hi!", h.doc.Text())

	h.send(t, keyCtrlE)
	h.send(t, runes("?"))
	assert.Equal(t, "# Hi!", h.doc.Text(), "edit mode off ignores input")
}

func TestQuestionMarkIsTextWhileEditing(t *testing.T) {
	h := newHarness(t, document.NewWithText("a"))

	h.send(t, runes("?"))
	assert.Contains(t, h.m.View(), "copy HTML", "help opens when read-only")
	h.send(t, keyEsc)

	h.send(t, keyCtrlE)
	h.send(t, runes("?"))
	assert.Equal(t, "a?", h.doc.Text())
	assert.NotContains(t, h.m.View(), "copy HTML")
}

func TestTogglesNeverMutateText(t *testing.T) {
	text := "# Title\n\nbody\n"
	h := newHarness(t, document.NewWithText(text))
	rev := h.doc.Revision()

	for i := 0; i < 4; i++ {
		h.send(t, keyCtrlE)
		h.send(t, keyCtrlP)
	}
	assert.Equal(t, text, h.doc.Text())
	assert.Equal(t, rev, h.doc.Revision())
}

// =============================================================================
// PREVIEW
// =============================================================================

func TestPreviewGating(t *testing.T) {
	h := newHarness(t, document.NewWithText("# Hi\n\nparagraph body text\n"))

	view := h.m.View()
	assert.Contains(t, view, "Preview is off")
	assert.NotContains(t, view, "paragraph body text")

	h.send(t, keyCtrlP)
	view = h.m.View()
	assert.NotContains(t, view, "Preview is off")
	assert.Contains(t, view, "paragraph body text")
}

func TestPreviewFollowsEdits(t *testing.T) {
	h := newHarness(t, document.NewWithText("start"))
	h.send(t, keyCtrlP)
	h.send(t, keyCtrlE)

	h.send(t, runes(" zebra"))
	assert.Contains(t, h.m.View(), "start zebra")
}

func TestDiagramStates(t *testing.T) {
	doc := document.NewWithText("# D\n\n```mermaid\ngraph TD\n  A --> B\n```\n")
	h := newHarness(t, doc)

	h.send(t, keyCtrlP)
	h.diagrams.Wait()
	h.send(t, DiagramEventMsg{})

	st, ok := h.diagrams.State(0)
	require.True(t, ok)
	assert.Equal(t, diagram.StatusRendered, st.Status)
	assert.Contains(t, h.m.View(), "Diagram 1:")
	assert.Contains(t, h.m.View(), "rendered")

	h.send(t, keyCtrlP)
	st, _ = h.diagrams.State(0)
	assert.Equal(t, diagram.StatusPlaceholder, st.Status)
}

func TestRetryDiagrams(t *testing.T) {
	doc := document.NewWithText("```mermaid\ngraph TD\n```\n")
	h := newHarness(t, doc)

	h.send(t, keyCtrlR)
	assert.Contains(t, h.m.Notice(), "only while preview is on")
	st, _ := h.diagrams.State(0)
	assert.Equal(t, diagram.StatusPlaceholder, st.Status)

	h.send(t, keyCtrlP)
	h.diagrams.Wait()
	first, _ := h.diagrams.State(0)
	require.Equal(t, diagram.StatusRendered, first.Status)

	h.send(t, keyCtrlR)
	assert.Equal(t, "Re-rendering diagrams", h.m.Notice())
	h.diagrams.Wait()
	h.send(t, DiagramEventMsg{})

	st, _ = h.diagrams.State(0)
	assert.Equal(t, diagram.StatusRendered, st.Status)
	assert.Greater(t, st.Generation, first.Generation)
	assert.NotEqual(t, first.ID, st.ID)
	assert.Equal(t, doc.Text(), "```mermaid\ngraph TD\n```\n")
}

// =============================================================================
// EXPORT
// =============================================================================

func TestExport(t *testing.T) {
	h := newHarness(t, document.NewWithText("# Report\n\ntext\n"))

	assert.Nil(t, h.send(t, keyCtrlX))
	assert.Contains(t, h.m.Notice(), "Export")

	msg := h.run(t, h.send(t, runes("h")))
	done, ok := msg.(ExportDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.Err)

	assert.Equal(t, h.outDir, filepath.Dir(done.Path))
	assert.True(t, strings.HasPrefix(filepath.Base(done.Path), "Report_"))
	assert.FileExists(t, done.Path)
	assert.Contains(t, h.m.Notice(), "Exported")
	assert.Nil(t, h.m.Alert())
}

func TestExportChordCancel(t *testing.T) {
	h := newHarness(t, document.NewWithText("# R"))

	h.send(t, keyCtrlX)
	assert.Nil(t, h.send(t, runes("z")))
	assert.Equal(t, "Export cancelled", h.m.Notice())

	// The chord is over: "h" is an ordinary key again.
	h.send(t, runes("h"))
	assert.Equal(t, "Export cancelled", h.m.Notice())
}

func TestExportFailureShowsAlert(t *testing.T) {
	doc := document.NewWithText("# R")
	h := newHarness(t, doc)

	blocker := filepath.Join(h.outDir, "file")
	writeFile(t, blocker, "x")
	h.m.export = &export.Options{OutputDir: filepath.Join(blocker, "sub"), Theme: "light", PageSize: "A4"}

	h.send(t, keyCtrlX)
	msg := h.run(t, h.send(t, runes("m")))
	assert.Error(t, msg.(ExportDoneMsg).Err)

	alert := h.m.Alert()
	require.NotNil(t, alert)
	assert.Equal(t, "Export failed", alert.Title)
	assert.Contains(t, h.m.View(), "Export failed")

	// The alert blocks other keys.
	h.send(t, keyCtrlE)
	assert.False(t, doc.Modes().EditMode)

	h.send(t, keyEnter)
	assert.Nil(t, h.m.Alert())
}

func TestCopyHTML(t *testing.T) {
	h := newHarness(t, document.NewWithText("# Hi\n"))

	msg := h.run(t, h.send(t, keyCtrlY))
	require.NoError(t, msg.(ClipboardMsg).Err)
	assert.Contains(t, h.clipboard, `<h1 id="hi">Hi</h1>`)
	assert.Contains(t, h.m.Notice(), "Copied HTML")
}

func TestCopyHTMLFailure(t *testing.T) {
	h := newHarness(t, document.NewWithText("# Hi\n"))
	h.m.copy = func(string) error { return errors.New("no clipboard") }

	h.run(t, h.send(t, keyCtrlY))
	assert.Contains(t, h.m.Notice(), "no clipboard")
}

// =============================================================================
// FILES
// =============================================================================

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	writeFile(t, path, "one")

	doc := document.New()
	require.NoError(t, doc.LoadFile(path, 0))
	h := newHarness(t, doc)

	h.send(t, keyCtrlE)
	h.send(t, runes(" two"))
	assert.True(t, doc.Dirty())
	assert.Contains(t, h.m.View(), "[+]")

	msg := h.run(t, h.send(t, keyCtrlS))
	require.NoError(t, msg.(SavedMsg).Err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one two", string(data))
	assert.False(t, doc.Dirty())
}

func TestSaveNewDocument(t *testing.T) {
	h := newHarness(t, document.NewWithText("# My Notes\n"))

	msg := h.run(t, h.send(t, keyCtrlS))
	saved := msg.(SavedMsg)
	require.NoError(t, saved.Err)
	assert.Equal(t, filepath.Join(h.root, "my-notes.md"), saved.Path)
	assert.FileExists(t, saved.Path)
}

func TestDefaultSavePath(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"My Notes", "my-notes.md"},
		{"  Q3: Plan/Draft  ", "q3-plandraft.md"},
		{"Über Café", "über-café.md"},
		{"***", "untitled.md"},
		{"", "untitled.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, filepath.Join("root", tt.want), defaultSavePath("root", tt.title), tt.title)
	}
}

func TestOpenPicker(t *testing.T) {
	h := newHarness(t, document.NewWithText("scratch"))
	h.doc.MarkSaved("", "scratch")
	writeFile(t, filepath.Join(h.root, "a.md"), "# A\n")
	writeFile(t, filepath.Join(h.root, "sub", "b.md"), "# B\n")
	writeFile(t, filepath.Join(h.root, "skip.txt"), "x")

	msg := h.run(t, h.send(t, keyCtrlO))
	require.Len(t, msg.(FilesDiscoveredMsg).Files, 2)
	assert.Contains(t, h.m.View(), "Open file (2)")

	h.send(t, keyDown)
	h.send(t, keyEnter)

	assert.Equal(t, filepath.Join(h.root, "sub", "b.md"), h.doc.Path())
	assert.Equal(t, "# B\n", h.doc.Text())
	assert.Equal(t, document.Modes{}, h.doc.Modes())
	assert.Contains(t, h.m.Notice(), "Opened b.md")
}

func TestOpenRefusesDirtyDocument(t *testing.T) {
	h := newHarness(t, document.NewWithText("unsaved"))
	writeFile(t, filepath.Join(h.root, "a.md"), "# A\n")

	h.run(t, h.send(t, keyCtrlO))
	h.send(t, keyEnter)

	require.NotNil(t, h.m.Alert())
	assert.Equal(t, "Unsaved changes", h.m.Alert().Title)
	assert.Equal(t, "unsaved", h.doc.Text())
}

func TestOpenPickerEscape(t *testing.T) {
	h := newHarness(t, document.NewWithText(""))
	writeFile(t, filepath.Join(h.root, "a.md"), "# A\n")

	h.run(t, h.send(t, keyCtrlO))
	h.send(t, keyEsc)
	assert.NotContains(t, h.m.View(), "Open file")
	assert.Empty(t, h.doc.Path())
}

func TestFileChangedReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	writeFile(t, path, "old")

	doc := document.New()
	require.NoError(t, doc.LoadFile(path, 0))
	h := newHarness(t, doc)
	h.send(t, keyCtrlP)

	writeFile(t, path, "new text")
	h.send(t, FileChangedMsg{Path: path})

	assert.Equal(t, "new text", doc.Text())
	assert.False(t, doc.Dirty())
	assert.True(t, doc.Modes().PreviewMode, "modes survive a reload")
	assert.Contains(t, h.m.Notice(), "Reloaded")
}

func TestFileChangedKeepsDirtyBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	writeFile(t, path, "old")

	doc := document.New()
	require.NoError(t, doc.LoadFile(path, 0))
	h := newHarness(t, doc)

	h.send(t, keyCtrlE)
	h.send(t, runes("!"))

	writeFile(t, path, "from elsewhere")
	h.send(t, FileChangedMsg{Path: path})

	assert.Equal(t, "old!", doc.Text())
	assert.Contains(t, h.m.Notice(), "unsaved edits kept")
}

func TestFileChangedIgnoresOwnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	writeFile(t, path, "same")

	doc := document.New()
	require.NoError(t, doc.LoadFile(path, 0))
	h := newHarness(t, doc)
	rev := doc.Revision()

	h.send(t, FileChangedMsg{Path: path})
	assert.Equal(t, rev, doc.Revision())
	assert.Empty(t, h.m.Notice())
}

// =============================================================================
// QUIT
// =============================================================================

func TestQuit(t *testing.T) {
	h := newHarness(t, document.NewWithText(""))

	cmd := h.send(t, keyCtrlQ)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, h.m.View())
}
