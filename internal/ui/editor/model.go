// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/mdsplit/internal/config"
	"github.com/jeranaias/mdsplit/internal/diagram"
	"github.com/jeranaias/mdsplit/internal/document"
	"github.com/jeranaias/mdsplit/internal/export"
	"github.com/jeranaias/mdsplit/internal/logging"
	"github.com/jeranaias/mdsplit/internal/render"
	"github.com/jeranaias/mdsplit/internal/ui/styles"
	"github.com/jeranaias/mdsplit/internal/watch"
)

// pickerLimit caps the number of files offered by the open picker.
const pickerLimit = 500

// overlay is the modal layer drawn over the panes.
type overlay int

const (
	overlayNone overlay = iota
	overlayAlert
	overlayPicker
	overlayHelp
)

// Alert is a blocking message dismissed with enter or esc.
type Alert struct {
	Title   string
	Message string
}

// Options configures a Model. Only Document is required.
type Options struct {
	Document *document.Document
	Renderer *render.Renderer
	Terminal *render.Terminal
	Diagrams *diagram.Set
	Export   *export.Options
	Config   *config.Config
	Theme    *styles.Theme

	// Root is the directory the open picker searches.
	Root string

	// Watch reloads the open file when it changes on disk.
	Watch bool

	// Clipboard overrides the system clipboard.
	Clipboard ClipboardFunc
}

// Model is the split-pane editor.
type Model struct {
	theme *styles.Theme
	keys  KeyMap
	help  help.Model

	doc      *document.Document
	renderer *render.Renderer
	term     *render.Terminal
	diagrams *diagram.Set
	export   *export.Options
	cfg      *config.Config
	copy     ClipboardFunc
	root     string

	editor  textarea.Model
	preview viewport.Model

	width  int
	height int

	overlay       overlay
	alert         *Alert
	files         []pickerEntry
	cursor        int
	pendingExport bool
	notice        string

	// previewKey identifies the rendered preview content.
	previewKey string

	watchEnabled bool
	watcher      watch.FileWatcher
	changes      chan string

	quitting bool
}

// New creates the editor model.
func New(opts Options) Model {
	if opts.Document == nil {
		opts.Document = document.New()
	}
	if opts.Renderer == nil {
		opts.Renderer = render.New()
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Terminal == nil {
		opts.Terminal = render.NewTerminal(opts.Config.Preview.Style)
	}
	if opts.Export == nil {
		opts.Export = export.DefaultOptions()
	}
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = systemClipboard
	}
	if opts.Root == "" {
		opts.Root = "."
	}

	ta := textarea.New()
	ta.Placeholder = "Start writing Markdown..."
	ta.ShowLineNumbers = opts.Config.Editor.ShowLineNumbers
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.SetValue(opts.Document.Text())
	ta.Blur()

	m := Model{
		theme:        opts.Theme,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		doc:          opts.Document,
		renderer:     opts.Renderer,
		term:         opts.Terminal,
		diagrams:     opts.Diagrams,
		export:       opts.Export,
		cfg:          opts.Config,
		copy:         opts.Clipboard,
		root:         opts.Root,
		editor:       ta,
		preview:      viewport.New(0, 0),
		watchEnabled: opts.Watch,
	}
	if m.watchEnabled {
		m.changes = make(chan string, 1)
	}
	if m.doc.Modes().EditMode {
		m.editor.Focus()
	}
	m.startWatcher()
	return m
}

// Init starts the diagram and file subscriptions.
func (m Model) Init() tea.Cmd {
	m.syncDiagrams()

	return tea.Batch(
		textarea.Blink,
		waitForDiagram(m.diagrams),
		waitForFileChange(m.changes),
	)
}

// Document returns the edited document.
func (m Model) Document() *document.Document {
	return m.doc
}

// Notice returns the current status bar notice.
func (m Model) Notice() string {
	return m.notice
}

// Alert returns the open alert, or nil.
func (m Model) Alert() *Alert {
	if m.overlay != overlayAlert {
		return nil
	}
	return m.alert
}

// Close releases the file watcher.
func (m Model) Close() error {
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case DiagramEventMsg:
		m.refreshPreview()
		return m, waitForDiagram(m.diagrams)

	case FileChangedMsg:
		m.handleFileChanged(msg)
		return m, waitForFileChange(m.changes)

	case FilesDiscoveredMsg:
		return m.handleFilesDiscovered(msg)

	case SavedMsg:
		if msg.Err != nil {
			m.showAlert("Save failed", msg.Err.Error())
			return m, nil
		}
		m.notice = styles.RenderSuccess("Saved " + msg.Path)
		m.restartWatcher()
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			logging.Get().Warn("export failed", zap.String("format", msg.Format), zap.Error(msg.Err))
			m.showAlert("Export failed", msg.Err.Error())
			return m, nil
		}
		m.notice = styles.RenderSuccess("Exported " + msg.Path)
		return m, nil

	case ClipboardMsg:
		if msg.Err != nil {
			m.notice = styles.RenderError(msg.Err.Error())
			return m, nil
		}
		m.notice = styles.RenderSuccess(fmt.Sprintf("Copied HTML (%d bytes)", msg.Bytes))
		return m, nil
	}

	var cmd tea.Cmd
	if m.doc.Modes().EditMode {
		m.editor, cmd = m.editor.Update(msg)
	}
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.help.Width = msg.Width

	// Layout: header line + panes + status bar line.
	const (
		headerHeight    = 1
		statusBarHeight = 1
		borderSize      = 2
		titleHeight     = 1
	)
	paneHeight := m.height - headerHeight - statusBarHeight
	innerHeight := paneHeight - borderSize - titleHeight
	if innerHeight < 1 {
		innerHeight = 1
	}

	left, right := m.theme.PaneWidths()
	m.editor.SetWidth(max(left-borderSize, 1))
	m.editor.SetHeight(innerHeight)
	m.preview.Width = max(right-borderSize, 1)
	m.preview.Height = innerHeight

	m.refreshPreview()
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Quit always works, even under an overlay.
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.overlay {
	case overlayAlert:
		if key.Matches(msg, m.keys.Confirm, m.keys.Dismiss) {
			m.overlay = overlayNone
			m.alert = nil
		}
		return m, nil

	case overlayPicker:
		return m.handlePickerKey(msg)

	case overlayHelp:
		if key.Matches(msg, m.keys.Help, m.keys.Dismiss, m.keys.Confirm) {
			m.overlay = overlayNone
		}
		return m, nil
	}

	if m.pendingExport {
		m.pendingExport = false
		return m.handleExportKey(msg)
	}

	editing := m.doc.Modes().EditMode

	switch {
	case key.Matches(msg, m.keys.ToggleEdit):
		if m.doc.ToggleEdit() {
			m.notice = "Edit mode on"
			return m, m.editor.Focus()
		}
		m.editor.Blur()
		m.notice = "Edit mode off"
		return m, nil

	case key.Matches(msg, m.keys.TogglePreview):
		if m.doc.TogglePreview() {
			m.notice = "Preview on"
		} else {
			m.notice = "Preview off"
		}
		m.syncDiagrams()
		m.refreshPreview()
		return m, nil

	case key.Matches(msg, m.keys.RetryDiagrams):
		if m.diagrams == nil || !m.doc.Modes().PreviewMode {
			m.notice = "Diagrams render only while preview is on"
			return m, nil
		}
		m.diagrams.Refresh()
		m.notice = "Re-rendering diagrams"
		m.refreshPreview()
		return m, nil

	case key.Matches(msg, m.keys.Save):
		path := ""
		if m.doc.Path() == "" {
			path = defaultSavePath(m.root, m.doc.Title())
		}
		return m, saveCmd(m.doc, path)

	case key.Matches(msg, m.keys.Open):
		return m, discoverCmd(m.root, pickerLimit)

	case key.Matches(msg, m.keys.Export):
		m.pendingExport = true
		m.notice = "Export: d=Word p=PDF h=HTML m=Markdown"
		return m, nil

	case key.Matches(msg, m.keys.CopyHTML):
		return m, copyHTMLCmd(m.doc.Snapshot(), m.renderer, m.renderedSVG, m.copy)

	case msg.String() == "f1" || (!editing && msg.String() == "?"):
		m.overlay = overlayHelp
		return m, nil
	}

	if editing {
		before := m.editor.Value()
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		if after := m.editor.Value(); after != before {
			m.doc.SetText(after)
			m.syncDiagrams()
			m.refreshPreview()
		}
		return m, cmd
	}

	// Read-only: keys scroll the preview.
	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)
	return m, cmd
}

func (m Model) handleExportKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var format export.Format
	switch {
	case key.Matches(msg, m.keys.ExportDocx):
		format = export.FormatDocx
	case key.Matches(msg, m.keys.ExportPDF):
		format = export.FormatPDF
	case key.Matches(msg, m.keys.ExportHTML):
		format = export.FormatHTML
	case key.Matches(msg, m.keys.ExportMarkdown):
		format = export.FormatMarkdown
	default:
		m.notice = "Export cancelled"
		return m, nil
	}

	m.notice = "Exporting " + string(format) + "..."
	opts := *m.export
	opts.Diagrams = m.renderedSVG
	return m, exportCmd(format, m.doc.Snapshot(), m.renderer, &opts)
}

// =============================================================================
// OPEN PICKER
// =============================================================================

// pickerEntry is one row of the open picker.
type pickerEntry struct {
	Rel  string
	Path string
	Size int64
}

func (m Model) handleFilesDiscovered(msg FilesDiscoveredMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.showAlert("Open failed", msg.Err.Error())
		return m, nil
	}
	if len(msg.Files) == 0 {
		m.notice = styles.RenderWarning("No Markdown files under " + m.root)
		return m, nil
	}

	m.files = make([]pickerEntry, len(msg.Files))
	for i, f := range msg.Files {
		m.files[i] = pickerEntry{Rel: f.Rel, Path: f.Path, Size: f.Size}
	}
	m.cursor = 0
	m.overlay = overlayPicker
	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Dismiss):
		m.overlay = overlayNone

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.files)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Confirm):
		m.overlay = overlayNone
		if m.cursor < len(m.files) {
			m.openFile(m.files[m.cursor].Path)
		}
	}
	return m, nil
}

// openFile loads path into the document. Unsaved changes are never
// discarded.
func (m *Model) openFile(path string) {
	if m.doc.Dirty() {
		m.showAlert("Unsaved changes", "Save the document (C-s) before opening another file.")
		return
	}
	if err := m.doc.LoadFile(path, m.maxFileSize()); err != nil {
		m.showAlert("Open failed", err.Error())
		return
	}

	// Loading forces both modes off.
	m.editor.SetValue(m.doc.Text())
	m.editor.Blur()
	m.notice = styles.RenderSuccess("Opened " + filepath.Base(path))
	m.syncDiagrams()
	m.refreshPreview()
	m.restartWatcher()
}

// =============================================================================
// FILE WATCHING
// =============================================================================

// handleFileChanged reloads the document after an external change, keeping
// the current modes. A dirty buffer is never overwritten.
func (m *Model) handleFileChanged(msg FileChangedMsg) {
	changed, err := m.doc.Reload(m.maxFileSize())
	switch {
	case errors.Is(err, document.ErrUnsavedChanges):
		m.notice = styles.RenderWarning(filepath.Base(msg.Path) + " changed on disk; unsaved edits kept")
		return
	case errors.Is(err, fs.ErrNotExist):
		return
	case err != nil:
		m.notice = styles.RenderError("Reload failed: " + err.Error())
		return
	case !changed:
		// Our own save.
		return
	}

	m.editor.SetValue(m.doc.Text())
	m.notice = styles.RenderInfo("Reloaded " + filepath.Base(msg.Path))
	m.syncDiagrams()
	m.refreshPreview()
}

// startWatcher watches the document's file when watching is enabled.
func (m *Model) startWatcher() {
	path := m.doc.Path()
	if !m.watchEnabled || path == "" || m.watcher != nil {
		return
	}

	changes := m.changes
	w := watch.New(path, watch.DefaultDebounce, func(p string) {
		select {
		case changes <- p:
		default:
		}
	})
	if err := w.Watch(); err != nil {
		logging.Get().Warn("file watch unavailable", zap.String("path", path), zap.Error(err))
		_ = w.Close()
		return
	}
	m.watcher = w
}

// restartWatcher follows the document to its current path.
func (m *Model) restartWatcher() {
	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			logging.Get().Debug("close file watcher", zap.Error(err))
		}
		m.watcher = nil
	}
	m.startWatcher()
}

// =============================================================================
// PREVIEW
// =============================================================================

// syncDiagrams re-triggers the diagram set with the current blocks and the
// preview flag.
func (m *Model) syncDiagrams() {
	if m.diagrams == nil {
		return
	}
	snap := m.doc.Snapshot()
	m.diagrams.Update(m.renderer.Diagrams(snap.Body()), snap.Modes.PreviewMode)
}

// renderedSVG exposes rendered diagrams to exports and the clipboard.
func (m Model) renderedSVG(index int) (string, bool) {
	if m.diagrams == nil {
		return "", false
	}
	st, ok := m.diagrams.State(index)
	if !ok || st.Status != diagram.StatusRendered {
		return "", false
	}
	return st.SVG, true
}

// refreshPreview re-renders the preview pane when its inputs changed.
func (m *Model) refreshPreview() {
	if m.preview.Width <= 0 {
		return
	}

	snap := m.doc.Snapshot()
	var states []diagram.State
	if m.diagrams != nil {
		states = m.diagrams.States()
	}

	k := previewKey(snap, m.preview.Width, states)
	if k == m.previewKey {
		return
	}
	m.previewKey = k

	if !snap.Modes.PreviewMode {
		m.preview.SetContent(m.theme.Placeholder.Render("Preview is off. Press C-p to render."))
		return
	}

	out, err := m.term.Render(snap.Body(), m.preview.Width)
	if err != nil {
		logging.Get().Warn("terminal render failed", zap.Error(err))
		out = styles.RenderError("Render failed: " + err.Error())
	}
	m.preview.SetContent(out + m.renderDiagramStates(states))
}

func previewKey(snap document.Snapshot, width int, states []diagram.State) string {
	k := fmt.Sprintf("%d/%d/%t", snap.Revision, width, snap.Modes.PreviewMode)
	for _, st := range states {
		k += fmt.Sprintf("/%d.%d", st.Generation, st.Status)
	}
	return k
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) showAlert(title, message string) {
	m.alert = &Alert{Title: title, Message: message}
	m.overlay = overlayAlert
}

func (m Model) maxFileSize() int64 {
	if m.cfg.Editor.MaxFileSizeKB > 0 {
		return m.cfg.Editor.MaxFileSizeKB * 1024
	}
	return 0
}

// errQuit wraps errors from the Bubble Tea program.
var errQuit = errors.New("editor exited unexpectedly")

// Run runs the editor full-screen until the user quits.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		if cerr := fm.Close(); cerr != nil {
			logging.Get().Debug("close editor", zap.Error(cerr))
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errQuit, err)
	}
	return nil
}
