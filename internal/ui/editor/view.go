// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/mdsplit/internal/diagram"
	"github.com/jeranaias/mdsplit/internal/ui/styles"
	"github.com/jeranaias/mdsplit/internal/util"
)

// View renders the editor.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	switch m.overlay {
	case overlayAlert:
		return m.place(m.renderAlert())
	case overlayPicker:
		return m.place(m.renderPicker())
	case overlayHelp:
		return m.place(m.renderHelp())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderPanes(),
		m.renderStatusBar(),
	)
}

// place centers an overlay box on the screen.
func (m Model) place(box string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	snap := m.doc.Snapshot()

	title := m.theme.HeaderTitle.Render(snap.Title())
	if m.doc.Dirty() {
		title += " " + m.theme.Dirty.Render("[+]")
	}

	path := snap.Path
	if path == "" {
		path = "(new document)"
	}
	// Two columns of header padding plus the separator.
	room := m.width - lipgloss.Width(title) - 5
	if room > 0 {
		title += "  " + m.theme.HeaderPath.Render(util.TruncateWidth(path, room))
	}

	return m.theme.Header.Width(m.width).Render(title)
}

// =============================================================================
// PANES
// =============================================================================

func (m Model) renderPanes() string {
	left, right := m.theme.PaneWidths()
	modes := m.doc.Modes()

	editorStyle := m.theme.Pane
	editorTitle := "Editor " + m.theme.ReadOnlyHint.Render("(read-only, C-e to edit)")
	if modes.EditMode {
		editorStyle = m.theme.PaneFocused
		editorTitle = "Editor"
	}

	previewStyle := m.theme.Pane
	if !modes.EditMode {
		previewStyle = m.theme.PaneFocused
	}

	editorPane := editorStyle.Width(max(left-2, 1)).Render(
		m.theme.PaneTitle.Render(editorTitle) + "\n" + m.editor.View(),
	)
	previewPane := previewStyle.Width(max(right-2, 1)).Render(
		m.theme.PaneTitle.Render("Preview") + "\n" + m.preview.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, editorPane, previewPane)
}

// renderDiagramStates lists the diagram states under the preview.
func (m Model) renderDiagramStates(states []diagram.State) string {
	if len(states) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n")
	for i, st := range states {
		label := fmt.Sprintf("Diagram %d: ", i+1)
		switch st.Status {
		case diagram.StatusRendered:
			sb.WriteString(m.theme.DiagramRendered.Render(
				label + fmt.Sprintf("%s rendered (%d bytes SVG)", styles.StatusIndicators.Success, len(st.SVG))))
		case diagram.StatusRendering:
			sb.WriteString(m.theme.DiagramRendering.Render(label + st.Message))
		case diagram.StatusFailed:
			sb.WriteString(m.theme.DiagramFailed.Render(label + styles.StatusIndicators.Error + " " + st.Message))
		default:
			sb.WriteString(m.theme.DiagramIdle.Render(label + st.Message))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	modes := m.doc.Modes()

	badge := func(name string, on bool) string {
		if on {
			return m.theme.ModeOn.Render(name)
		}
		return m.theme.ModeOff.Render(name)
	}

	parts := []string{badge("EDIT", modes.EditMode), badge("PREVIEW", modes.PreviewMode)}
	if m.notice != "" {
		parts = append(parts, m.theme.Notice.Render(m.notice))
	}
	left := strings.Join(parts, " ")

	if m.theme.GetLayoutMode() == styles.LayoutWide {
		hints := m.help.ShortHelpView(m.keys.ShortHelp())
		if gap := m.width - lipgloss.Width(left) - lipgloss.Width(hints) - 2; gap > 0 {
			left += strings.Repeat(" ", gap) + hints
		}
	}

	return m.theme.StatusBar.Width(m.width).MaxHeight(1).Render(left)
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) renderAlert() string {
	if m.alert == nil {
		return ""
	}
	width := min(max(m.width-10, 20), 72)

	body := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.AlertTitle.Render(styles.StatusIndicators.Error+" "+m.alert.Title),
		"",
		m.theme.AlertMessage.Width(width).Render(m.alert.Message),
		"",
		m.theme.AlertHint.Render("Press Enter or Esc to dismiss"),
	)
	return m.theme.AlertBox.Render(body)
}

func (m Model) renderPicker() string {
	rows := max(m.height-8, 3)
	width := min(max(m.width-12, 20), 80)

	// Keep the cursor inside the visible window.
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.files))

	var sb strings.Builder
	sb.WriteString(m.theme.PickerTitle.Render(fmt.Sprintf("Open file (%d)", len(m.files))))
	sb.WriteString("\n\n")
	for i := start; i < end; i++ {
		f := m.files[i]
		meta := m.theme.PickerMeta.Render(fmt.Sprintf(" %s", formatSize(f.Size)))
		name := util.TruncateWidth(f.Rel, width-lipgloss.Width(meta)-2)

		style := m.theme.PickerItem
		if i == m.cursor {
			style = m.theme.PickerItemSelected
		}
		sb.WriteString(style.Render(name) + meta)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.theme.AlertHint.Render("up/down select, Enter open, Esc cancel"))

	return m.theme.PickerBox.Render(sb.String())
}

func (m Model) renderHelp() string {
	return m.theme.HelpBox.Render(
		m.theme.PickerTitle.Render("Keys") + "\n\n" +
			m.help.FullHelpView(m.keys.FullHelp()),
	)
}

// formatSize renders a byte count for the picker.
func formatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
}
