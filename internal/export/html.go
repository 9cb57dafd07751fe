// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/parser"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jeranaias/mdsplit/internal/document"
	"github.com/jeranaias/mdsplit/internal/render"
)

var diagramSelector = cascadia.MustCompile("div.diagram[data-diagram-index]")

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports a standalone HTML document with embedded CSS.
type HTMLExporter struct {
	renderer *render.Renderer
	options  *Options

	// Script is inserted verbatim before </body>. Exports leave it empty;
	// the preview server uses it for live reload.
	Script string

	// Title replaces the document title in <title> when set.
	Title string
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(r *render.Renderer, opts *Options) *HTMLExporter {
	if r == nil {
		r = render.New()
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{renderer: r, options: opts}
}

// Export renders the document body and wraps it in a full HTML page.
func (e *HTMLExporter) Export(snap document.Snapshot) ([]byte, error) {
	meta, body := snap.Split()

	fragment, err := e.renderer.Render(body)
	if err != nil {
		return nil, err
	}
	if e.options.Diagrams != nil {
		fragment, err = InlineDiagrams(fragment, e.options.Diagrams)
		if err != nil {
			return nil, err
		}
	}

	highlightCSS, err := render.HighlightCSS(e.renderer.HighlightStyle())
	if err != nil {
		return nil, err
	}

	title := e.Title
	if title == "" {
		title = snap.Title()
	}

	theme := e.options.Theme
	if theme != "dark" {
		theme = "light"
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(title)))
	sb.WriteString("    <meta name=\"generator\" content=\"mdsplit\">\n")
	if meta.Author != "" {
		sb.WriteString(fmt.Sprintf("    <meta name=\"author\" content=\"%s\">\n", html.EscapeString(meta.Author)))
	}
	if len(meta.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("    <meta name=\"keywords\" content=\"%s\">\n",
			html.EscapeString(strings.Join(meta.Tags, ", "))))
	}

	sb.WriteString("    <style>\n")
	sb.WriteString(baseCSS)
	sb.WriteString(styleText(highlightCSS))
	if e.options.CustomCSS != "" {
		sb.WriteString("\n        /* Custom */\n")
		sb.WriteString(styleText(e.options.CustomCSS))
		sb.WriteString("\n")
	}
	sb.WriteString("    </style>\n")

	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", theme))
	sb.WriteString("<main class=\"container\">\n")
	sb.WriteString(fragment)
	sb.WriteString("</main>\n")
	if e.Script != "" {
		sb.WriteString(e.Script)
		sb.WriteString("\n")
	}
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the HTML file extension.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the HTML MIME type.
func (e *HTMLExporter) MimeType() string {
	return "text/html; charset=utf-8"
}

// styleText keeps CSS from closing the surrounding style element.
func styleText(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// =============================================================================
// DIAGRAMS
// =============================================================================

// InlineDiagrams replaces the source of each rendered diagram placeholder
// in fragment with the SVG supplied by lookup. Placeholders without an SVG
// keep their source.
func InlineDiagrams(fragment string, lookup DiagramLookup) (string, error) {
	context := &nethtml.Node{Type: nethtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := nethtml.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return "", fmt.Errorf("parse rendered html: %w", err)
	}

	for _, n := range nodes {
		for _, div := range diagramSelector.MatchAll(n) {
			index, err := strconv.Atoi(attr(div, "data-diagram-index"))
			if err != nil {
				continue
			}
			svg, ok := lookup(index)
			if !ok || svg == "" {
				continue
			}
			parsed, err := nethtml.ParseFragment(strings.NewReader(svg), div)
			if err != nil {
				return "", fmt.Errorf("parse diagram %d: %w", index, err)
			}
			for c := div.FirstChild; c != nil; {
				next := c.NextSibling
				div.RemoveChild(c)
				c = next
			}
			for _, p := range parsed {
				div.AppendChild(p)
			}
		}
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := nethtml.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return buf.String(), nil
}

func attr(n *nethtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// =============================================================================
// CUSTOM CSS
// =============================================================================

// ValidateCSS reports whether css parses as a stylesheet.
func ValidateCSS(css string) error {
	if _, err := parser.Parse(css); err != nil {
		return fmt.Errorf("invalid stylesheet: %w", err)
	}
	return nil
}

// LoadCSS reads and validates a custom stylesheet.
func LoadCSS(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read stylesheet: %w", err)
	}
	css := string(data)
	if err := ValidateCSS(css); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return css, nil
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const baseCSS = `
        * {
            box-sizing: border-box;
        }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", "Monaco", "Inconsolata", "Fira Code", "Source Code Pro", monospace;
        }

        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f6f8fa;
            --text-primary: #24292e;
            --text-muted: #6a737d;
            --border-color: #d0d7de;
            --accent: #0366d6;
            --error: #d73a49;
        }

        .dark-theme {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --text-primary: #c0caf5;
            --text-muted: #565f89;
            --border-color: #414868;
            --accent: #7aa2f7;
            --error: #f7768e;
        }

        body {
            margin: 0;
            padding: 20px;
            font-family: var(--font-sans);
            font-size: 16px;
            line-height: 1.6;
            color: var(--text-primary);
            background: var(--bg-primary);
        }

        .container {
            max-width: 900px;
            margin: 0 auto;
        }

        .markdown-body h1, .markdown-body h2 {
            border-bottom: 1px solid var(--border-color);
            padding-bottom: 0.3em;
        }

        .markdown-body a {
            color: var(--accent);
        }

        .markdown-body pre {
            padding: 16px;
            overflow: auto;
            font-family: var(--font-mono);
            font-size: 14px;
            background: var(--bg-secondary);
            border-radius: 6px;
        }

        .markdown-body code {
            font-family: var(--font-mono);
        }

        .markdown-body blockquote {
            margin: 0 0 16px;
            padding: 0 1em;
            color: var(--text-muted);
            border-left: 4px solid var(--border-color);
            font-style: italic;
        }

        table.md-table {
            border-collapse: collapse;
            margin: 16px 0;
        }

        table.md-table th, table.md-table td {
            padding: 6px 13px;
            border: 1px solid var(--border-color);
        }

        table.md-table th {
            font-weight: 600;
            background: var(--bg-secondary);
        }

        .diagram {
            margin: 16px 0;
            text-align: center;
        }

        .diagram pre {
            text-align: left;
        }

        .diagram-error {
            color: var(--error);
        }
`
