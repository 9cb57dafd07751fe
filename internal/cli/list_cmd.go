// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/mdsplit/internal/util"
	"github.com/jeranaias/mdsplit/internal/workspace"
)

func (a *app) listCommand() *cobra.Command {
	var (
		patterns []string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "List Markdown files under a directory",
		Example: `  mdsplit list
  mdsplit list docs --pattern '*.md' --limit 20`,
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			opts := workspace.DefaultOptions()
			if len(patterns) > 0 {
				opts.Patterns = patterns
			}
			opts.MaxResults = limit

			files, err := workspace.Discover(root, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				data := make([]FileData, len(files))
				for i, f := range files {
					data[i] = FileData{Path: f.Rel, Size: f.Size, Modified: f.ModTime.UTC()}
				}
				return NewJSONResponse("list", data).Write(out)
			}

			if len(files) == 0 {
				fmt.Fprintln(out, DimStyle.Render("No Markdown files found"))
				return nil
			}
			width := 0
			for _, f := range files {
				width = max(width, util.StringWidth(f.Rel))
			}
			for _, f := range files {
				fmt.Fprintf(out, "%s  %s  %s\n",
					util.PadRight(f.Rel, width),
					DimStyle.Render(fmt.Sprintf("%8d", f.Size)),
					DimStyle.Render(f.ModTime.Format("2006-01-02 15:04")),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&patterns, "pattern", "p", nil, "glob patterns relative to dir (default **/*.md)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after this many files (0 = no limit)")
	return cmd
}
