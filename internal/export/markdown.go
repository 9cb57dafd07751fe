// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/mdsplit/internal/document"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter writes the raw document text.
type MarkdownExporter struct {
	options *Options
	now     func() time.Time
}

// exportHeader is the front matter added with IncludeMetadata.
type exportHeader struct {
	Title     string `yaml:"title"`
	Exported  string `yaml:"exported"`
	Generator string `yaml:"generator"`
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts, now: time.Now}
}

// Export returns the document text. With IncludeMetadata, a document
// without front matter gets a generated header.
func (e *MarkdownExporter) Export(snap document.Snapshot) ([]byte, error) {
	if !e.options.IncludeMetadata || hasFrontMatter(snap.Text) {
		return []byte(snap.Text), nil
	}

	header, err := yaml.Marshal(exportHeader{
		Title:     snap.Title(),
		Exported:  e.now().Format(time.RFC3339),
		Generator: "mdsplit",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString(snap.Text)
	return buf.Bytes(), nil
}

// FileExtension returns the Markdown file extension.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the Markdown MIME type.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown; charset=utf-8"
}

func hasFrontMatter(text string) bool {
	return strings.HasPrefix(text, "---\n") || strings.HasPrefix(text, "---\r\n") ||
		strings.HasPrefix(text, "+++\n")
}
