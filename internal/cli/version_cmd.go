// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  exactArgs(0),
		// No config or logging needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			data := VersionData{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return NewJSONResponse("version", data).Write(out)
			}
			fmt.Fprintf(out, "%s %s\n", TitleStyle.Render("mdsplit"), data.Version)
			fmt.Fprintf(out, "%s %s\n", RenderLabel("Commit"), ValueStyle.Render(data.GitCommit))
			fmt.Fprintf(out, "%s %s\n", RenderLabel("Built"), ValueStyle.Render(data.BuildDate))
			fmt.Fprintf(out, "%s %s\n", RenderLabel("Go"), ValueStyle.Render(data.GoVersion))
			fmt.Fprintf(out, "%s %s\n", RenderLabel("Platform"), ValueStyle.Render(data.Platform))
			return nil
		},
	}
}
