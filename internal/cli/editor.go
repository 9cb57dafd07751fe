// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeranaias/mdsplit/internal/render"
	"github.com/jeranaias/mdsplit/internal/ui/editor"
	"github.com/jeranaias/mdsplit/internal/ui/styles"
)

// runEditor opens the split-pane editor on args[0] or the sample document.
func (a *app) runEditor(cmd *cobra.Command, args []string, noWatch bool) error {
	if err := RequiresTTY("the editor"); err != nil {
		return err
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	doc, err := a.loadDocument(path)
	if err != nil {
		return err
	}

	opts, err := a.exportOptions()
	if err != nil {
		return err
	}

	// The open picker searches next to the file, or the working directory.
	root := "."
	if path != "" {
		root = filepath.Dir(path)
	} else if wd, err := os.Getwd(); err == nil {
		root = wd
	}

	diagrams := a.newDiagramSet()
	if diagrams != nil {
		defer diagrams.Close()
	}

	return editor.Run(editor.Options{
		Document: doc,
		Renderer: a.newRenderer(),
		Terminal: render.NewTerminal(a.cfg.Preview.Style),
		Diagrams: diagrams,
		Export:   opts,
		Config:   a.cfg,
		Theme:    styles.NewTheme(),
		Root:     root,
		Watch:    a.cfg.Editor.WatchFile && !noWatch,
	})
}
