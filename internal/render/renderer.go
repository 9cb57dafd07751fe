// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/jeranaias/mdsplit/internal/diagram"
)

// DefaultHighlightStyle is the chroma style used when none is configured.
const DefaultHighlightStyle = "github"

// TableClass is set on every rendered table.
const TableClass = "md-table"

// RootClass is the class of the element wrapping rendered output.
const RootClass = "markdown-body"

// diagramLanguages are the fence info strings rendered as diagrams.
var diagramLanguages = map[string]bool{
	"mermaid": true,
	"diagram": true,
}

// IsDiagramLanguage reports whether a fence language is rendered as a diagram.
func IsDiagramLanguage(lang string) bool {
	return diagramLanguages[strings.ToLower(strings.TrimSpace(lang))]
}

// =============================================================================
// OPTIONS
// =============================================================================

type options struct {
	hardWraps      bool
	highlightStyle string
}

// Option configures a Renderer.
type Option func(*options)

// WithHardWraps renders single newlines as line breaks.
func WithHardWraps(on bool) Option {
	return func(o *options) { o.hardWraps = on }
}

// WithHighlightStyle selects the chroma style for code blocks.
func WithHighlightStyle(name string) Option {
	return func(o *options) {
		if name != "" {
			o.highlightStyle = name
		}
	}
}

// =============================================================================
// RENDERER
// =============================================================================

// Renderer converts Markdown to an HTML fragment. It is safe for concurrent
// use and deterministic: equal input yields byte-identical output.
type Renderer struct {
	md    goldmark.Markdown
	style string
}

// New creates a renderer.
func New(opts ...Option) *Renderer {
	o := options{highlightStyle: DefaultHighlightStyle}
	for _, opt := range opts {
		opt(&o)
	}

	var htmlOpts []renderer.Option
	if o.hardWraps {
		htmlOpts = append(htmlOpts, html.WithHardWraps())
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(o.highlightStyle),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(&blockTransformer{}, 100)),
		),
		goldmark.WithRendererOptions(htmlOpts...),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(util.Prioritized(&diagramRenderer{}, 100)),
		),
	)

	return &Renderer{md: md, style: o.highlightStyle}
}

// HighlightStyle returns the chroma style name in use.
func (r *Renderer) HighlightStyle() string {
	return r.style
}

// Render returns markdown as HTML wrapped in a markdown-body div.
func (r *Renderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`<div class="` + RootClass + `">` + "\n")
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	buf.WriteString("</div>\n")
	return buf.String(), nil
}

// Diagrams returns the diagram blocks of markdown in document order.
func (r *Renderer) Diagrams(markdown string) []diagram.Source {
	source := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(source))

	var out []diagram.Source
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if d, ok := n.(*DiagramBlock); ok {
			out = append(out, diagram.Source{
				Index:    d.Index,
				Language: d.Language,
				Code:     d.Code,
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

// HighlightCSS returns the stylesheet for code blocks in the named chroma
// style. Unknown names fall back to chroma's default style.
func HighlightCSS(style string) (string, error) {
	s := chromaStyles.Get(style)
	if s == nil {
		s = chromaStyles.Fallback
	}
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, s); err != nil {
		return "", fmt.Errorf("write highlight css: %w", err)
	}
	return buf.String(), nil
}

// =============================================================================
// DIAGRAM NODE
// =============================================================================

// KindDiagram is the node kind of DiagramBlock.
var KindDiagram = ast.NewNodeKind("Diagram")

// DiagramBlock replaces a fenced code block whose language is a diagram
// language.
type DiagramBlock struct {
	ast.BaseBlock
	Index    int
	Language string
	Code     string
}

// Kind implements ast.Node.
func (n *DiagramBlock) Kind() ast.NodeKind {
	return KindDiagram
}

// Dump implements ast.Node.
func (n *DiagramBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Index":    strconv.Itoa(n.Index),
		"Language": n.Language,
	}, nil)
}

// blockTransformer swaps diagram fences for DiagramBlock nodes and tags
// tables with TableClass.
type blockTransformer struct{}

func (t *blockTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()

	var fences []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock:
			if IsDiagramLanguage(string(node.Language(source))) {
				fences = append(fences, node)
			}
			return ast.WalkSkipChildren, nil
		case *east.Table:
			node.SetAttributeString("class", []byte(TableClass))
		}
		return ast.WalkContinue, nil
	})

	for i, fence := range fences {
		var code bytes.Buffer
		lines := fence.Lines()
		for j := 0; j < lines.Len(); j++ {
			seg := lines.At(j)
			code.Write(seg.Value(source))
		}
		block := &DiagramBlock{
			Index:    i,
			Language: strings.ToLower(string(fence.Language(source))),
			Code:     code.String(),
		}
		parent := fence.Parent()
		parent.ReplaceChild(parent, fence, block)
	}
}

// diagramRenderer writes DiagramBlock placeholders.
type diagramRenderer struct{}

func (r *diagramRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindDiagram, r.renderDiagram)
}

func (r *diagramRenderer) renderDiagram(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*DiagramBlock)
	_, _ = fmt.Fprintf(w, `<div class="diagram" data-diagram-index="%d" data-diagram-language="%s"><pre>`,
		n.Index, util.EscapeHTML([]byte(n.Language)))
	_, _ = w.Write(util.EscapeHTML([]byte(n.Code)))
	_, _ = w.WriteString("</pre></div>\n")
	return ast.WalkSkipChildren, nil
}
