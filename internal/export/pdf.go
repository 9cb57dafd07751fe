// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/jeranaias/mdsplit/internal/document"
	"github.com/jeranaias/mdsplit/internal/render"
)

const (
	pdfMargin     = 20.0 // mm
	mmPerTwip     = 25.4 / 1440
	mmPerPoint    = 25.4 / 72
	pdfLineFactor = 1.4
	pdfCellPad    = 1.5 // mm
)

// =============================================================================
// PDF EXPORTER
// =============================================================================

// PDFExporter lays out mapped blocks as a PDF with the core fonts.
type PDFExporter struct {
	renderer *render.Renderer
	options  *Options
	now      func() time.Time
}

// NewPDFExporter creates a new PDF exporter.
func NewPDFExporter(r *render.Renderer, opts *Options) *PDFExporter {
	if r == nil {
		r = render.New()
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	return &PDFExporter{renderer: r, options: opts, now: time.Now}
}

// Export renders the document and lays it out as PDF.
func (e *PDFExporter) Export(snap document.Snapshot) ([]byte, error) {
	blocks, err := renderBlocks(e.renderer, snap)
	if err != nil {
		return nil, err
	}
	meta, _ := snap.Split()
	return e.Layout(snap.Title(), meta.Author, blocks)
}

// Layout writes blocks to a PDF document.
func (e *PDFExporter) Layout(title, author string, blocks []Block) ([]byte, error) {
	pdf := fpdf.New("P", "mm", pageSize(e.options.PageSize), "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(title, true)
	if author != "" {
		pdf.SetAuthor(author, true)
	}
	pdf.SetCreator("mdsplit", true)
	pdf.SetCreationDate(e.now())
	pdf.AddPage()

	// Core fonts are cp1252; translate so bullets and accents survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*pdfMargin

	for _, b := range blocks {
		if b.Kind == KindTable {
			e.table(pdf, tr, b, contentW)
			continue
		}

		size := float64(b.Size) / 2
		if size <= 0 {
			size = BodySize / 2
		}
		setFont(pdf, b.Monospace, b.Bold, b.Italic, size)

		indent := float64(b.Indent) * mmPerTwip
		lineH := size * mmPerPoint * pdfLineFactor

		pdf.SetX(pdfMargin + indent)
		pdf.MultiCell(contentW-indent, lineH, tr(b.Text), "", "L", false)
		pdf.Ln(lineH / 2)

		if pdf.Err() {
			break
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) table(pdf *fpdf.Fpdf, tr func(string) string, b Block, contentW float64) {
	size := float64(b.Size) / 2
	lineH := size * mmPerPoint * pdfLineFactor
	_, pageH := pdf.GetPageSize()

	for _, row := range b.Rows {
		// Height of the tallest cell in the row.
		lines := 1
		for _, cell := range row.Cells {
			setFont(pdf, false, cell.Bold, false, size)
			w := contentW*cell.WidthPercent/100 - 2*pdfCellPad
			if n := len(pdf.SplitText(tr(cell.Text), w)); n > lines {
				lines = n
			}
		}
		rowH := float64(lines) * lineH

		if pdf.GetY()+rowH > pageH-pdfMargin {
			pdf.AddPage()
		}

		x, y := pdfMargin, pdf.GetY()
		for _, cell := range row.Cells {
			w := contentW * cell.WidthPercent / 100
			setFont(pdf, false, cell.Bold, false, size)
			if cell.Borders == singleBorders {
				pdf.Rect(x, y, w, rowH, "D")
			}
			pdf.SetXY(x+pdfCellPad, y)
			pdf.MultiCell(w-2*pdfCellPad, lineH, tr(cell.Text), "", "L", false)
			x += w
		}
		pdf.SetXY(pdfMargin, y+rowH)
	}
	pdf.Ln(lineH / 2)
}

func setFont(pdf *fpdf.Fpdf, monospace, bold, italic bool, size float64) {
	family := "Helvetica"
	if monospace {
		family = "Courier"
	}
	style := ""
	if bold {
		style += "B"
	}
	if italic {
		style += "I"
	}
	pdf.SetFont(family, style, size)
}

// FileExtension returns the PDF file extension.
func (e *PDFExporter) FileExtension() string {
	return ".pdf"
}

// MimeType returns the PDF MIME type.
func (e *PDFExporter) MimeType() string {
	return "application/pdf"
}
