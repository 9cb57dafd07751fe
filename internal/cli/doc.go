// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the mdsplit command line.
//
// Commands are built with cobra. With no subcommand mdsplit opens the
// split-pane editor on the given file, or on the bundled sample document.
//
// # Commands
//
//   - mdsplit [file]                       Split-pane editor (default)
//   - mdsplit render <file> [--terminal]   Rendered HTML, or terminal output
//   - mdsplit export <file> -f FORMAT      Export to docx, pdf, html or md
//   - mdsplit serve [file] [--port N]      Live preview server
//   - mdsplit list [dir]                   Markdown files under dir
//   - mdsplit config init|show             Write or print the configuration
//   - mdsplit version                      Build information
//
// Every command accepts --config, --verbose and --json. Errors are printed
// in one format and mapped to exit codes by GetExitCode.
//
// # Usage
//
//	os.Exit(cli.Execute())
package cli
