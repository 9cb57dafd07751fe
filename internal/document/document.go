// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/frontmatter"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultTitle is used when a document has no title, heading or file name.
const DefaultTitle = "Untitled"

// =============================================================================
// MODES
// =============================================================================

// Modes holds the two independent view flags. There are no disallowed
// combinations and no transitions beyond direct assignment.
type Modes struct {
	// EditMode allows the text to be edited.
	EditMode bool `json:"edit_mode"`
	// PreviewMode activates rendering of the preview and its diagrams.
	PreviewMode bool `json:"preview_mode"`
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is the shared editor state. It is safe for concurrent use.
type Document struct {
	mu sync.RWMutex

	text  string
	modes Modes
	path  string

	// savedText is the text as of the last load or save.
	savedText string
	revision  uint64
	updatedAt time.Time
}

// New creates an empty document with both modes off.
func New() *Document {
	return &Document{updatedAt: time.Now()}
}

// NewWithText creates a document holding text, as if it had been typed.
func NewWithText(text string) *Document {
	d := New()
	d.SetText(text)
	return d
}

// Text returns the raw Markdown text.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// SetText replaces the text. This is the keystroke path.
func (d *Document) SetText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.text == text {
		return
	}
	d.text = text
	d.revision++
	d.updatedAt = time.Now()
}

// Path returns the file the document was loaded from or saved to.
func (d *Document) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

// Revision increments on every text change. Renderers use it to skip
// redundant work.
func (d *Document) Revision() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}

// Dirty reports whether the text changed since the last load or save.
func (d *Document) Dirty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text != d.savedText
}

// =============================================================================
// MODE CONTROL
// =============================================================================

// Modes returns the current view flags.
func (d *Document) Modes() Modes {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.modes
}

// SetModes assigns both flags at once.
func (d *Document) SetModes(m Modes) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modes = m
}

// SetEditMode assigns the edit flag.
func (d *Document) SetEditMode(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modes.EditMode = on
}

// SetPreviewMode assigns the preview flag.
func (d *Document) SetPreviewMode(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modes.PreviewMode = on
}

// ToggleEdit flips the edit flag and returns the new value.
func (d *Document) ToggleEdit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modes.EditMode = !d.modes.EditMode
	return d.modes.EditMode
}

// TogglePreview flips the preview flag and returns the new value.
func (d *Document) TogglePreview() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modes.PreviewMode = !d.modes.PreviewMode
	return d.modes.PreviewMode
}

// =============================================================================
// LOADING
// =============================================================================

// Load replaces the text with data decoded as UTF-8 and remembers name as the
// document path. Both mode flags are forced off. Invalid byte sequences are
// replaced with U+FFFD; a leading byte order mark is dropped.
func (d *Document) Load(name string, data []byte) {
	text := DecodeText(data)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	d.savedText = text
	d.path = name
	d.modes = Modes{}
	d.revision++
	d.updatedAt = time.Now()
}

// MarkSaved records text as persisted at path.
func (d *Document) MarkSaved(path, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.path = path
	d.savedText = text
}

// DecodeText decodes data as UTF-8, honoring and stripping a byte order mark.
func DecodeText(data []byte) string {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		// The UTF-8 decoder replaces bad sequences instead of failing, so
		// this only triggers on transformer misuse.
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(out)
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Snapshot is an immutable copy of the document for rendering and export.
type Snapshot struct {
	Text      string
	Modes     Modes
	Path      string
	Revision  uint64
	UpdatedAt time.Time
}

// Snapshot returns an immutable copy of the current state.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{
		Text:      d.text,
		Modes:     d.modes,
		Path:      d.path,
		Revision:  d.revision,
		UpdatedAt: d.updatedAt,
	}
}

// Title returns the document title. See Snapshot.Title.
func (d *Document) Title() string {
	return d.Snapshot().Title()
}

// Meta is the front matter mdsplit understands. Unknown keys are ignored.
type Meta struct {
	Title  string   `yaml:"title" toml:"title" json:"title"`
	Author string   `yaml:"author" toml:"author" json:"author"`
	Tags   []string `yaml:"tags" toml:"tags" json:"tags"`
}

// Split separates front matter from the Markdown body. Text without front
// matter, or with front matter that fails to parse, is returned whole.
func (s Snapshot) Split() (Meta, string) {
	var meta Meta
	rest, err := frontmatter.Parse(strings.NewReader(s.Text), &meta)
	if err != nil {
		return Meta{}, s.Text
	}
	return meta, string(rest)
}

// Body returns the Markdown text with front matter removed.
func (s Snapshot) Body() string {
	_, body := s.Split()
	return body
}

// Title returns the front matter title, else the first level-1 heading,
// else the file base name, else DefaultTitle.
func (s Snapshot) Title() string {
	meta, body := s.Split()
	if t := strings.TrimSpace(meta.Title); t != "" {
		return t
	}
	if t := firstHeading(body); t != "" {
		return t
	}
	if s.Path != "" {
		base := filepath.Base(s.Path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return DefaultTitle
}

// firstHeading returns the text of the first ATX level-1 heading outside
// fenced code blocks.
func firstHeading(body string) string {
	scanner := bufio.NewScanner(bytes.NewReader([]byte(body)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	inFence := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimRight(strings.TrimPrefix(line, "# "), "#"))
		}
	}
	return ""
}
