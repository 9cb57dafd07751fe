// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/jeranaias/mdsplit/internal/logging"
	"github.com/jeranaias/mdsplit/internal/util"
)

// DefaultMaxFileSize is the load limit used when none is configured.
const DefaultMaxFileSize = 4 * 1024 * 1024

var (
	// ErrUnsupportedFile is returned for files without a Markdown extension.
	ErrUnsupportedFile = errors.New("unsupported file type: expected .md or .markdown")

	// ErrBinaryContent is returned when a file does not contain text.
	ErrBinaryContent = errors.New("file does not contain text")

	// ErrFileTooLarge is returned when a file exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnsavedChanges is returned by Reload when the buffer is dirty.
	ErrUnsavedChanges = errors.New("document has unsaved changes")
)

//go:embed sample.md
var sampleMarkdown []byte

// IsMarkdownFile reports whether path has a .md or .markdown extension.
func IsMarkdownFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// IsText reports whether data looks like text. Empty input counts as text.
func IsText(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// LoadFile reads a Markdown file into d. maxSize <= 0 uses DefaultMaxFileSize.
// On error d is left unchanged.
func (d *Document) LoadFile(path string, maxSize int64) error {
	if !IsMarkdownFile(path) {
		return fmt.Errorf("load %s: %w", path, ErrUnsupportedFile)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("load %s: is a directory", path)
	}
	if info.Size() > maxSize {
		return fmt.Errorf("load %s (%d bytes, limit %d): %w", path, info.Size(), maxSize, ErrFileTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if !IsText(data) {
		return fmt.Errorf("load %s: %w", path, ErrBinaryContent)
	}

	d.Load(path, data)
	logging.Get().Debug("document loaded",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// SaveFile writes the current text to path atomically. An empty path saves
// to the document's own path.
func (d *Document) SaveFile(path string) (string, error) {
	snap := d.Snapshot()
	if path == "" {
		path = snap.Path
	}
	if path == "" {
		return "", errors.New("save: document has no file name")
	}

	if err := util.AtomicWriteFile(path, []byte(snap.Text), 0644); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	d.MarkSaved(path, snap.Text)

	logging.Get().Debug("document saved",
		zap.String("path", path),
		zap.Int("bytes", len(snap.Text)),
	)
	return path, nil
}

// Reload re-reads the document's file after an external change and keeps
// the current modes. It reports false when there is no path or the file
// already matches the text. A dirty buffer is never overwritten.
func (d *Document) Reload(maxSize int64) (bool, error) {
	snap := d.Snapshot()
	if snap.Path == "" {
		return false, nil
	}
	data, err := os.ReadFile(snap.Path)
	if err != nil {
		return false, fmt.Errorf("reload %s: %w", snap.Path, err)
	}
	if DecodeText(data) == snap.Text {
		return false, nil
	}
	if d.Dirty() {
		return false, ErrUnsavedChanges
	}

	if err := d.LoadFile(snap.Path, maxSize); err != nil {
		return false, err
	}
	d.SetModes(snap.Modes)
	return true, nil
}

// LoadSample loads the bundled sample document. If the sample cannot be
// decoded the failure is logged and d stays unset.
func (d *Document) LoadSample() {
	if len(sampleMarkdown) == 0 || !IsText(sampleMarkdown) {
		logging.Get().Warn("sample document unavailable")
		return
	}
	d.Load("", sampleMarkdown)
}

// Sample returns the bundled sample document text.
func Sample() string {
	return DecodeText(sampleMarkdown)
}
