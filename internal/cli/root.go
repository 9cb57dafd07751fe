// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/mdsplit/internal/config"
	"github.com/jeranaias/mdsplit/internal/diagram"
	"github.com/jeranaias/mdsplit/internal/document"
	"github.com/jeranaias/mdsplit/internal/export"
	"github.com/jeranaias/mdsplit/internal/logging"
	"github.com/jeranaias/mdsplit/internal/render"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app holds the flags and configuration of one invocation.
type app struct {
	configPath string
	verbose    bool
	jsonOutput bool

	cfg *config.Config
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteC()
	logging.Flush()
	if err == nil {
		return ExitSuccess
	}

	name := root.Name()
	if cmd != nil {
		name = cmd.Name()
	}
	if a.jsonOutput {
		DisplayError(stdout, name, err, true)
	} else {
		DisplayError(stderr, name, err, false)
	}
	return GetExitCode(err)
}

func (a *app) rootCommand() *cobra.Command {
	var noWatch bool

	root := &cobra.Command{
		Use:   "mdsplit [file]",
		Short: "Split-pane Markdown editor with live preview and export",
		Long: `mdsplit edits a Markdown document next to its rendered preview.

Edit and preview are separate modes: C-e makes the editor writable, C-p
renders the preview and its diagrams. Documents export to Word, PDF, HTML
or Markdown from the editor, the preview server or the export command.

Without a file the bundled sample document is opened.`,
		Args:          maxArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEditor(cmd, args, noWatch)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ~/.mdsplit/config.toml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&a.jsonOutput, "json", false, "print results as JSON")
	root.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the file when it changes on disk")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return NewValidationError("flag", "", err.Error(), cmd.UseLine())
	})

	root.AddCommand(
		a.renderCommand(),
		a.exportCommand(),
		a.serveCommand(),
		a.listCommand(),
		a.configCommand(),
		a.versionCommand(),
	)
	return root
}

// =============================================================================
// SETUP
// =============================================================================

// setup loads the configuration and installs the logger. The editor logs
// to a file so the terminal is not corrupted; other commands log to stderr.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}

	output := "stderr"
	if cmd == cmd.Root() {
		output = cfg.LogPath()
		if err := os.MkdirAll(filepath.Dir(output), 0700); err != nil {
			return &ConfigError{Path: output, Err: err}
		}
	}
	if err := logging.Set(level, output); err != nil {
		return &ConfigError{Err: err}
	}
	return nil
}

// loadConfig reads --config, or the default locations. A broken default
// config file is reported and the defaults are used.
func (a *app) loadConfig(warn io.Writer) (*config.Config, error) {
	if a.configPath != "" {
		cfg, err := config.LoadFromPath(a.configPath)
		if err != nil {
			return nil, &ConfigError{Path: a.configPath, Err: err}
		}
		return cfg, nil
	}

	cfg, err := config.Load()
	if cfg == nil {
		return nil, &ConfigError{Err: err}
	}
	if err != nil {
		fmt.Fprintf(warn, "%s %v (using defaults)\n", WarningStyle.Render("[!]"), err)
	}
	return cfg, nil
}

// =============================================================================
// SHARED BUILDERS
// =============================================================================

func (a *app) maxFileSize() int64 {
	return a.cfg.Editor.MaxFileSizeKB * 1024
}

// loadDocument loads path, or the sample document when path is empty.
func (a *app) loadDocument(path string) (*document.Document, error) {
	doc := document.New()
	if path == "" {
		doc.LoadSample()
		return doc, nil
	}
	if err := doc.LoadFile(path, a.maxFileSize()); err != nil {
		return nil, err
	}
	return doc, nil
}

func (a *app) newRenderer() *render.Renderer {
	return render.New(
		render.WithHardWraps(a.cfg.Preview.HardWraps),
		render.WithHighlightStyle(a.cfg.Preview.HighlightStyle),
	)
}

// newDiagramSet returns nil when diagrams are disabled.
func (a *app) newDiagramSet() *diagram.Set {
	if !a.cfg.Diagram.Enabled {
		return nil
	}
	engine := diagram.NewMermaidCLI(a.cfg.Diagram.Command)
	if !engine.Available() {
		logging.Get().Warn("diagram renderer not found; diagrams will show their source",
			zap.String("command", engine.Command))
	}
	return diagram.NewSet(engine, diagram.NewMessages(a.cfg.Diagram.Language))
}

func (a *app) exportOptions() (*export.Options, error) {
	opts, err := export.OptionsFromConfig(a.cfg)
	if err != nil {
		return nil, &ConfigError{Path: a.cfg.Export.CSSFile, Err: err}
	}
	return opts, nil
}

// renderDiagrams renders every diagram block of body and waits for the
// results. Failed diagrams are left out of the lookup.
func renderDiagrams(set *diagram.Set, r *render.Renderer, body string) export.DiagramLookup {
	set.Update(r.Diagrams(body), true)
	set.Wait()

	return func(index int) (string, bool) {
		st, ok := set.State(index)
		if !ok || st.Status != diagram.StatusRendered {
			return "", false
		}
		return st.SVG, true
	}
}

// =============================================================================
// ARGUMENT VALIDATION
// =============================================================================

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return NewValidationError("arguments", fmt.Sprint(args),
				fmt.Sprintf("accepts %d arg(s), received %d", n, len(args)), cmd.UseLine())
		}
		return nil
	}
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return NewValidationError("arguments", fmt.Sprint(args),
				fmt.Sprintf("accepts at most %d arg(s), received %d", n, len(args)), cmd.UseLine())
		}
		return nil
	}
}
