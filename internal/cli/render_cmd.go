// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/mdsplit/internal/export"
	"github.com/jeranaias/mdsplit/internal/render"
)

// RenderData is the JSON payload of the render command.
type RenderData struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
}

func (a *app) renderCommand() *cobra.Command {
	var (
		terminal   bool
		width      int
		noDiagrams bool
	)

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a Markdown file to HTML on stdout",
		Long: `Render a Markdown file to an HTML fragment on stdout.

With --terminal the document is rendered for the terminal instead. Styles
follow preview.style when stdout is a terminal and are plain otherwise.`,
		Example: `  mdsplit render notes.md > notes.html
  mdsplit render --terminal README.md`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDocument(args[0])
			if err != nil {
				return err
			}
			snap := doc.Snapshot()
			out := cmd.OutOrStdout()

			if terminal {
				style := a.cfg.Preview.Style
				if !IsStdoutTTY() {
					style = "notty"
				}
				if width <= 0 {
					width = GetTerminalWidth()
				}
				text, err := render.NewTerminal(style).Render(snap.Body(), width)
				if err != nil {
					return NewCommandError("render", "terminal output", err)
				}
				_, err = fmt.Fprint(out, text)
				return err
			}

			r := a.newRenderer()
			html, err := r.Render(snap.Body())
			if err != nil {
				return NewCommandError("render", "html output", err)
			}
			if set := a.newDiagramSet(); set != nil && !noDiagrams {
				defer set.Close()
				if html, err = export.InlineDiagrams(html, renderDiagrams(set, r, snap.Body())); err != nil {
					return NewCommandError("render", "inline diagrams", err)
				}
			}

			if a.jsonOutput {
				return NewJSONResponse("render", RenderData{Title: snap.Title(), HTML: html}).Write(out)
			}
			_, err = fmt.Fprint(out, html)
			return err
		},
	}

	cmd.Flags().BoolVarP(&terminal, "terminal", "t", false, "render for the terminal instead of HTML")
	cmd.Flags().IntVarP(&width, "width", "w", 0, "terminal wrap width (default: terminal width)")
	cmd.Flags().BoolVar(&noDiagrams, "no-diagrams", false, "leave diagram blocks as source")
	return cmd
}
