// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/mdsplit/internal/export"
)

func (a *app) exportCommand() *cobra.Command {
	var (
		format string
		outDir string
		open   bool
		meta   bool
	)

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a Markdown file to docx, pdf, html or md",
		Long: `Export a Markdown file. The output is named after the document title
and a timestamp and written to --out (default export.output_dir).`,
		Example: `  mdsplit export report.md --format docx
  mdsplit export report.md -f pdf -o ~/Documents --open
  mdsplit export draft.md -f md --metadata`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				names := make([]string, 0, 4)
				for _, f := range export.Formats() {
					names = append(names, string(f))
				}
				return NewValidationError("format", format,
					"expected one of "+strings.Join(names, ", "),
					"mdsplit export notes.md --format pdf")
			}

			doc, err := a.loadDocument(args[0])
			if err != nil {
				return err
			}
			opts, err := a.exportOptions()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				opts.OutputDir = outDir
			}
			if open {
				opts.OpenAfterExport = true
			}
			if meta {
				opts.IncludeMetadata = true
			}

			r := a.newRenderer()
			snap := doc.Snapshot()
			if f == export.FormatHTML {
				if set := a.newDiagramSet(); set != nil {
					defer set.Close()
					opts.Diagrams = renderDiagrams(set, r, snap.Body())
				}
			}

			exporter, err := export.New(f, r, opts)
			if err != nil {
				return err
			}
			path, err := export.ExportToFile(snap, exporter, opts)
			if err != nil {
				return NewCommandError("export", string(f), err)
			}

			var size int64
			if info, err := os.Stat(path); err == nil {
				size = info.Size()
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return NewJSONResponse("export", ExportData{Format: string(f), Path: path, Bytes: size}).Write(out)
			}
			fmt.Fprintf(out, "%s Exported %s (%s)\n", SuccessStyle.Render("[OK]"), path, DimStyle.Render(fmt.Sprintf("%d bytes", size)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "html", "output format: docx, pdf, html or md")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory")
	cmd.Flags().BoolVar(&open, "open", false, "open the file after exporting")
	cmd.Flags().BoolVar(&meta, "metadata", false, "add a front matter header to Markdown exports")
	return cmd
}
