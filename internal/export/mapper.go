// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jeranaias/mdsplit/internal/render"
)

var (
	rootSelector = cascadia.MustCompile("." + render.RootClass)
	bodySelector = cascadia.MustCompile("body")
)

// =============================================================================
// TREE LOOKUP
// =============================================================================

// ParseTree parses rendered HTML into a node tree.
func ParseTree(markup string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse rendered html: %w", err)
	}
	return doc, nil
}

// FindRoot returns the markdown-body element of doc, else its body, else
// doc itself.
func FindRoot(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	if n := rootSelector.MatchFirst(doc); n != nil {
		return n
	}
	if n := bodySelector.MatchFirst(doc); n != nil {
		return n
	}
	return doc
}

// MapHTML parses markup, locates its root and maps it.
func MapHTML(markup string) ([]Block, error) {
	doc, err := ParseTree(markup)
	if err != nil {
		return nil, err
	}
	return Map(FindRoot(doc)), nil
}

// =============================================================================
// MAPPING
// =============================================================================

// Map converts the direct element children of root to blocks, in order.
// Unrecognized elements become plain paragraphs.
func Map(root *html.Node) []Block {
	if root == nil {
		return nil
	}
	var blocks []Block
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		blocks = append(blocks, mapElement(c)...)
	}
	return blocks
}

func mapElement(n *html.Node) []Block {
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		return []Block{{
			Kind:  KindHeading,
			Text:  visibleText(n),
			Level: level,
			Size:  HeadingSize(level),
			Bold:  true,
		}}

	case atom.P:
		return []Block{paragraph(n)}

	case atom.Pre:
		return []Block{{
			Kind:      KindCode,
			Text:      strings.TrimRight(rawText(n), "\n"),
			Size:      CodeSize,
			Monospace: true,
			Indent:    BlockIndent,
		}}

	case atom.Ul, atom.Ol:
		var items []Block
		for li := n.FirstChild; li != nil; li = li.NextSibling {
			if li.Type != html.ElementNode || li.DataAtom != atom.Li {
				continue
			}
			items = append(items, Block{
				Kind:   KindListItem,
				Text:   BulletPrefix + visibleText(li),
				Size:   BodySize,
				Indent: BlockIndent,
			})
		}
		return items

	case atom.Table:
		return []Block{table(n)}

	case atom.Blockquote:
		return []Block{{
			Kind:   KindQuote,
			Text:   visibleText(n),
			Size:   BodySize,
			Italic: true,
			Indent: BlockIndent,
		}}
	}
	return []Block{paragraph(n)}
}

func paragraph(n *html.Node) Block {
	return Block{
		Kind: KindParagraph,
		Text: visibleText(n),
		Size: BodySize,
	}
}

// table collects every tr, directly under the table or inside a row group.
func table(n *html.Node) Block {
	var rows [][]*html.Node
	addRow := func(tr *html.Node) {
		var cells []*html.Node
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
				cells = append(cells, c)
			}
		}
		rows = append(rows, cells)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Tr:
			addRow(c)
		case atom.Thead, atom.Tbody, atom.Tfoot:
			for tr := c.FirstChild; tr != nil; tr = tr.NextSibling {
				if tr.Type == html.ElementNode && tr.DataAtom == atom.Tr {
					addRow(tr)
				}
			}
		}
	}

	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	width := 0.0
	if cols > 0 {
		width = 100 / float64(cols)
	}

	block := Block{Kind: KindTable, Size: BodySize, Rows: make([]Row, 0, len(rows))}
	for _, r := range rows {
		row := Row{Cells: make([]Cell, 0, len(r))}
		for _, c := range r {
			header := c.DataAtom == atom.Th
			row.Cells = append(row.Cells, Cell{
				Text:         visibleText(c),
				Header:       header,
				Bold:         header,
				WidthPercent: width,
				Borders:      singleBorders,
			})
		}
		block.Rows = append(block.Rows, row)
	}
	return block
}

// =============================================================================
// TEXT EXTRACTION
// =============================================================================

// visibleText returns the text a reader would see, whitespace collapsed.
func visibleText(n *html.Node) string {
	var sb strings.Builder
	collectText(n, &sb)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// rawText returns the text content with whitespace preserved.
func rawText(n *html.Node) string {
	var sb strings.Builder
	collectText(n, &sb)
	return sb.String()
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Template, atom.Head:
			return
		case atom.Br:
			sb.WriteString("\n")
			return
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
