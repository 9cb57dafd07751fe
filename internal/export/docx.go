// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/fumiama/go-docx"

	"github.com/jeranaias/mdsplit/internal/document"
	"github.com/jeranaias/mdsplit/internal/render"
)

// =============================================================================
// DOCX EXPORTER
// =============================================================================

// DocxExporter writes a WordprocessingML package built from mapped blocks.
type DocxExporter struct {
	renderer *render.Renderer
	options  *Options
}

// NewDocxExporter creates a new Word exporter.
func NewDocxExporter(r *render.Renderer, opts *Options) *DocxExporter {
	if r == nil {
		r = render.New()
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	return &DocxExporter{renderer: r, options: opts}
}

// Export renders the document and packages it as a .docx file.
func (e *DocxExporter) Export(snap document.Snapshot) ([]byte, error) {
	blocks, err := renderBlocks(e.renderer, snap)
	if err != nil {
		return nil, err
	}
	return e.Package(blocks)
}

// Package lays blocks out in a Word document and returns the zipped package.
func (e *DocxExporter) Package(blocks []Block) ([]byte, error) {
	doc := docx.New().WithDefaultTheme()
	dim := pageDimensions[pageSize(e.options.PageSize)]

	for _, b := range blocks {
		if b.Kind == KindTable {
			addTable(doc, b, dim[0]-2*pageMargin)
			continue
		}
		p := doc.AddParagraph()
		if b.Indent > 0 {
			p.Properties = &docx.ParagraphProperties{Ind: &docx.Ind{Left: b.Indent}}
		}
		addRun(p, b.Text, runProps{
			bold:      b.Bold,
			italic:    b.Italic,
			monospace: b.Monospace,
			size:      b.Size,
		})
	}

	doc.Document.Body.Items = append(doc.Document.Body.Items, &docx.SectPr{
		PgSz: &docx.PgSz{W: dim[0], H: dim[1]},
		PgMar: &docx.PgMar{
			Top: pageMargin, Right: pageMargin, Bottom: pageMargin, Left: pageMargin,
			Header: 720, Footer: 720,
		},
	})

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return buf.Bytes(), nil
}

// FileExtension returns the Word file extension.
func (e *DocxExporter) FileExtension() string {
	return ".docx"
}

// MimeType returns the Word MIME type.
func (e *DocxExporter) MimeType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

// =============================================================================
// LAYOUT
// =============================================================================

// page dimensions and margins in twips
var pageDimensions = map[string][2]int{
	"A4":     {11906, 16838},
	"Letter": {12240, 15840},
}

const pageMargin = 1440

type runProps struct {
	bold      bool
	italic    bool
	monospace bool
	size      int
}

// addRun appends text as one run. Newlines become breaks and tabs become
// tab elements.
func addRun(p *docx.Paragraph, text string, props runProps) {
	run := p.AddText(text)
	for _, c := range run.Children {
		if t, ok := c.(*docx.Text); ok {
			t.XMLSpace = "preserve"
		}
	}
	if props.monospace {
		run.Font(MonospaceFont, MonospaceFont, MonospaceFont, "")
	}
	if props.bold {
		run.Bold()
	}
	if props.italic {
		run.Italic()
	}
	if props.size > 0 {
		size := strconv.Itoa(props.size)
		run.Size(size).SizeCs(size)
	}
}

// addTable lays out a table whose rows are padded to the widest row.
// textWidth is the usable page width in twips.
func addTable(doc *docx.Docx, b Block, textWidth int) {
	cols := b.Columns()
	if cols == 0 || len(b.Rows) == 0 {
		return
	}

	tbl := doc.AddTable(len(b.Rows), cols, 0, nil)
	// pct widths are in fiftieths of a percent
	tbl.TableProperties.Width = &docx.WTableWidth{W: 5000, Type: "pct"}
	for i := 0; i < cols; i++ {
		tbl.TableGrid.GridCols = append(tbl.TableGrid.GridCols, &docx.WGridCol{W: int64(textWidth / cols)})
	}

	for r, row := range b.Rows {
		for c, tc := range tbl.TableRows[r].TableCells {
			cell := Cell{
				WidthPercent: 100 / float64(cols),
				Borders:      Borders{Top: BorderSingle, Left: BorderSingle, Bottom: BorderSingle, Right: BorderSingle},
			}
			if c < len(row.Cells) {
				cell = row.Cells[c]
			}
			tc.TableCellProperties.TableCellWidth = &docx.WTableCellWidth{
				W:    int64(math.Round(cell.WidthPercent * 50)),
				Type: "pct",
			}
			tc.TableCellProperties.TableBorders = cellBorders(cell.Borders)
			addRun(tc.AddParagraph(), cell.Text, runProps{bold: cell.Bold, size: b.Size})
		}
	}

	// Word requires a paragraph between adjacent tables and before sectPr.
	doc.AddParagraph()
}

func cellBorders(b Borders) *docx.WTableBorders {
	edge := func(style BorderStyle) *docx.WTableBorder {
		if style == "" {
			return &docx.WTableBorder{Val: "nil"}
		}
		return &docx.WTableBorder{Val: string(style), Size: 4, Color: "auto"}
	}
	return &docx.WTableBorders{
		Top:    edge(b.Top),
		Left:   edge(b.Left),
		Bottom: edge(b.Bottom),
		Right:  edge(b.Right),
	}
}
