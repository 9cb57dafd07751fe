// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

// =============================================================================
// LAYOUT CONSTANTS
// =============================================================================

// Font sizes are in half-points, indentation in twips (1/1440 inch).
const (
	// BodySize is the font size of paragraphs, list items and quotes.
	BodySize = 22
	// CodeSize is the font size of code blocks.
	CodeSize = 20
	// BlockIndent is the left indentation of code, list items and quotes.
	BlockIndent = 720
	// BulletPrefix starts every list item.
	BulletPrefix = "• "
	// MonospaceFont is used for code blocks.
	MonospaceFont = "Courier New"
)

// headingSizes maps heading level 1-6 to a font size.
var headingSizes = [6]int{48, 40, 32, 28, 24, 22}

// HeadingSize returns the font size for a heading level. Levels outside 1-6
// are clamped.
func HeadingSize(level int) int {
	if level < 1 {
		level = 1
	}
	if level > len(headingSizes) {
		level = len(headingSizes)
	}
	return headingSizes[level-1]
}

// =============================================================================
// BLOCKS
// =============================================================================

// Kind identifies the construct a Block maps to.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindCode
	KindListItem
	KindTable
	KindQuote
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindHeading:
		return "heading"
	case KindCode:
		return "code"
	case KindListItem:
		return "list-item"
	case KindTable:
		return "table"
	case KindQuote:
		return "quote"
	}
	return "unknown"
}

// Block is one element of the export document.
type Block struct {
	Kind Kind
	Text string

	// Level is the heading level (1-6); zero for other kinds.
	Level int
	// Size is the font size in half-points.
	Size      int
	Bold      bool
	Italic    bool
	Monospace bool
	// Indent is the left indentation in twips.
	Indent int

	// Rows holds table content; only set for KindTable.
	Rows []Row
}

// Row is a table row.
type Row struct {
	Cells []Cell
}

// Cell is a table cell.
type Cell struct {
	Text   string
	Header bool
	Bold   bool
	// WidthPercent is 100 divided by the column count of the widest row.
	WidthPercent float64
	Borders      Borders
}

// BorderStyle is a cell edge style.
type BorderStyle string

// BorderSingle is a single thin line.
const BorderSingle BorderStyle = "single"

// Borders holds the style of each cell edge.
type Borders struct {
	Top    BorderStyle
	Left   BorderStyle
	Bottom BorderStyle
	Right  BorderStyle
}

// singleBorders has a single line on every edge.
var singleBorders = Borders{
	Top:    BorderSingle,
	Left:   BorderSingle,
	Bottom: BorderSingle,
	Right:  BorderSingle,
}

// Columns returns the cell count of the widest row.
func (b Block) Columns() int {
	cols := 0
	for _, r := range b.Rows {
		if len(r.Cells) > cols {
			cols = len(r.Cells)
		}
	}
	return cols
}
