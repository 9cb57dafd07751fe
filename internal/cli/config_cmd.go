// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/mdsplit/internal/config"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
		// init must run before a config file exists; show loads it itself.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
	cmd.AddCommand(a.configInitCommand(), a.configShowCommand())
	return cmd
}

func (a *app) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Write the default settings to --config, or to ~/.mdsplit/config.toml.
A path ending in .json is written as JSON.`,
		Example: `  mdsplit config init
  mdsplit config init --config ./mdsplit.json --force`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				p, err := config.ConfigPathTOML()
				if err != nil {
					return &ConfigError{Err: err}
				}
				path = p
			}

			if _, err := os.Stat(path); err == nil && !force {
				return NewValidationError("config", path, "file already exists",
					"mdsplit config init --force")
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return &ConfigError{Path: path, Err: err}
			}

			if err := config.Save(config.Default(), path); err != nil {
				return &ConfigError{Path: path, Err: err}
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return NewJSONResponse("config init", ConfigData{Path: path}).Write(out)
			}
			fmt.Fprintf(out, "%s Wrote %s\n", SuccessStyle.Render("[OK]"), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func (a *app) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after defaults and MDSPLIT_* environment overrides.`,
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return NewJSONResponse("config show", a.cfg).Write(out)
			}
			return a.cfg.WriteTOML(out)
		},
	}
}
