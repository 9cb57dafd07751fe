// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/mdsplit/internal/config"
	"github.com/jeranaias/mdsplit/internal/document"
	"github.com/jeranaias/mdsplit/internal/logging"
	"github.com/jeranaias/mdsplit/internal/render"
	"github.com/jeranaias/mdsplit/internal/util"
)

// ErrUnsupportedFormat is returned for unknown export format names.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for document exporters.
type Exporter interface {
	// Export converts a document snapshot to the target format.
	Export(snap document.Snapshot) ([]byte, error)

	// FileExtension returns the file extension including the dot.
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// Format names an export target.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatDocx     Format = "docx"
	FormatPDF      Format = "pdf"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatMarkdown, FormatHTML, FormatDocx, FormatPDF}
}

// ParseFormat resolves a format name or alias.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "docx", "word":
		return FormatDocx, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// DiagramLookup returns the rendered SVG of diagram index, if any.
type DiagramLookup func(index int) (svg string, ok bool)

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata adds front matter to Markdown exports that lack it.
	IncludeMetadata bool

	// Theme for HTML export ("light" or "dark").
	Theme string

	// CustomCSS is appended to the HTML export stylesheet.
	CustomCSS string

	// PageSize for PDF and Word exports ("A4" or "Letter").
	PageSize string

	// Diagrams supplies rendered diagrams for HTML export. Without it the
	// diagram source is exported.
	Diagrams DiagramLookup
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir: ".",
		Theme:     "light",
		PageSize:  "A4",
	}
}

// OptionsFromConfig builds options from the export section of cfg. The
// custom stylesheet, if configured, is loaded and validated.
func OptionsFromConfig(cfg *config.Config) (*Options, error) {
	opts := DefaultOptions()
	if cfg == nil {
		return opts, nil
	}
	if cfg.Export.OutputDir != "" {
		opts.OutputDir = cfg.Export.OutputDir
	}
	opts.OpenAfterExport = cfg.Export.OpenAfterExport
	opts.IncludeMetadata = cfg.Export.IncludeMetadata
	if cfg.Export.PageSize != "" {
		opts.PageSize = cfg.Export.PageSize
	}
	if cfg.Preview.Style == "dark" {
		opts.Theme = "dark"
	}
	if cfg.Export.CSSFile != "" {
		css, err := LoadCSS(cfg.Export.CSSFile)
		if err != nil {
			return nil, err
		}
		opts.CustomCSS = css
	}
	return opts, nil
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// New creates the exporter for format. A nil renderer gets a default one.
func New(format Format, r *render.Renderer, opts *Options) (Exporter, error) {
	if r == nil {
		r = render.New()
	}
	switch format {
	case FormatMarkdown:
		return NewMarkdownExporter(opts), nil
	case FormatHTML:
		return NewHTMLExporter(r, opts), nil
	case FormatDocx:
		return NewDocxExporter(r, opts), nil
	case FormatPDF:
		return NewPDFExporter(r, opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// ForFormat resolves name and creates its exporter.
func ForFormat(name string, r *render.Renderer, opts *Options) (Exporter, error) {
	format, err := ParseFormat(name)
	if err != nil {
		return nil, err
	}
	return New(format, r, opts)
}

// FileName returns the export file name for snap: the sanitized title, a
// timestamp and the exporter's extension.
func FileName(snap document.Snapshot, exporter Exporter, now time.Time) string {
	return fmt.Sprintf("%s_%s%s",
		sanitizeFilename(snap.Title()),
		now.Format("20060102_150405"),
		exporter.FileExtension(),
	)
}

// ExportToFile exports snap using exporter and returns the output path.
// The file is written atomically; a failed export leaves nothing behind.
func ExportToFile(snap document.Snapshot, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(snap)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(dir, FileName(snap, exporter, time.Now()))
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	logging.Get().Info("document exported",
		zap.String("path", outputPath),
		zap.String("mime", exporter.MimeType()),
		zap.Int("bytes", len(content)),
	)

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// Non-fatal: the file was written.
			logging.Get().Warn("could not open exported file",
				zap.String("path", outputPath),
				zap.Error(err),
			)
		}
	}

	return outputPath, nil
}

// renderBlocks renders the document body and maps the result.
func renderBlocks(r *render.Renderer, snap document.Snapshot) ([]Block, error) {
	markup, err := r.Render(snap.Body())
	if err != nil {
		return nil, err
	}
	return MapHTML(markup)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = strings.TrimSpace(s)

	// Limit length
	maxLen := 50
	if runes := []rune(s); len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	// Replace problematic characters (Windows and Unix)
	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "document"
	}
	return string(result)
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// pageSize normalizes a configured page size to "A4" or "Letter".
func pageSize(name string) string {
	if strings.EqualFold(strings.TrimSpace(name), "letter") {
		return "Letter"
	}
	return "A4"
}
