// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// StyleAuto picks dark or light based on the terminal background.
const StyleAuto = "auto"

// ResolveStyle maps a configured preview style to a glamour standard style.
func ResolveStyle(style string) string {
	style = strings.ToLower(strings.TrimSpace(style))
	if style == "" || style == StyleAuto {
		if termenv.HasDarkBackground() {
			return "dark"
		}
		return "light"
	}
	return style
}

// Terminal renders Markdown for display in a terminal. The underlying
// glamour renderer is rebuilt only when the wrap width changes.
type Terminal struct {
	style string

	mu    sync.Mutex
	width int
	tr    *glamour.TermRenderer
}

// NewTerminal creates a terminal renderer for a glamour style name, or
// "auto".
func NewTerminal(style string) *Terminal {
	return &Terminal{style: ResolveStyle(style)}
}

// Style returns the resolved glamour style.
func (t *Terminal) Style() string {
	return t.style
}

// Render returns markdown rendered for a pane width columns wide.
func (t *Terminal) Render(markdown string, width int) (string, error) {
	if width < 20 {
		width = 20
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tr == nil || t.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(t.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", fmt.Errorf("create terminal renderer: %w", err)
		}
		t.tr = tr
		t.width = width
	}

	out, err := t.tr.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render terminal preview: %w", err)
	}
	return out, nil
}
