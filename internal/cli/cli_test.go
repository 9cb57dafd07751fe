// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mdsplit/internal/config"
	"github.com/jeranaias/mdsplit/internal/document"
	"github.com/jeranaias/mdsplit/internal/export"
)

// =============================================================================
// HELPERS
// =============================================================================

type result struct {
	code   int
	stdout string
	stderr string
}

// writeConfig writes a config file that keeps logs inside the test directory.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("[log]\nfile = %q\nlevel = \"error\"\n\n[diagram]\nenabled = false\n%s",
		filepath.Join(dir, "mdsplit.log"), extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCLI(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// runWithConfig runs the CLI with a private config file.
func runWithConfig(t *testing.T, args ...string) result {
	t.Helper()
	return runCLI(t, append([]string{"--config", writeConfig(t, "")}, args...)...)
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// jsonResult decodes a JSON response with typed data.
func jsonResult[T any](t *testing.T, out string) (bool, T, *string) {
	t.Helper()
	var resp struct {
		Success bool    `json:"success"`
		Data    T       `json:"data"`
		Error   *string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp.Success, resp.Data, resp.Error
}

// =============================================================================
// VERSION
// =============================================================================

func TestVersion(t *testing.T) {
	res := runCLI(t, "version")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "mdsplit "+Version)
	assert.Contains(t, res.stdout, "Platform:")
}

func TestVersion_JSON(t *testing.T) {
	res := runCLI(t, "--json", "version")
	require.Equal(t, ExitSuccess, res.code)

	ok, data, _ := jsonResult[VersionData](t, res.stdout)
	assert.True(t, ok)
	assert.Equal(t, Version, data.Version)
	assert.NotEmpty(t, data.GoVersion)
}

// =============================================================================
// RENDER
// =============================================================================

func TestRender_HTML(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "doc.md", "# Title\n\nSome *text*\n")

	res := runWithConfig(t, "render", path)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, `<h1 id="title">Title</h1>`)
	assert.Contains(t, res.stdout, "<em>text</em>")
}

func TestRender_JSON(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "doc.md", "# Title\n\nbody\n")

	res := runWithConfig(t, "--json", "render", path)
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	ok, data, _ := jsonResult[RenderData](t, res.stdout)
	assert.True(t, ok)
	assert.Equal(t, "Title", data.Title)
	assert.Contains(t, data.HTML, "<p>body</p>")
}

func TestRender_Terminal(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "doc.md", "# Title\n\nplain words here\n")

	res := runWithConfig(t, "render", "--terminal", "--width", "60", path)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "plain words here")
	assert.NotContains(t, res.stdout, "<p>")
}

func TestRender_Errors(t *testing.T) {
	dir := t.TempDir()
	txt := writeDoc(t, dir, "notes.txt", "hello")

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing file", []string{"render", filepath.Join(dir, "missing.md")}, ExitNotFoundError},
		{"not markdown", []string{"render", txt}, ExitUsageError},
		{"no argument", []string{"render"}, ExitUsageError},
		{"unknown flag", []string{"render", "--nope", txt}, ExitUsageError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runWithConfig(t, tt.args...)
			assert.Equal(t, tt.code, res.code)
			assert.Contains(t, res.stderr, "[ERROR]")
		})
	}
}

func TestError_JSON(t *testing.T) {
	res := runWithConfig(t, "--json", "render", filepath.Join(t.TempDir(), "missing.md"))
	assert.Equal(t, ExitNotFoundError, res.code)
	assert.Empty(t, res.stderr)

	ok, _, msg := jsonResult[any](t, res.stdout)
	assert.False(t, ok)
	require.NotNil(t, msg)
	assert.Contains(t, *msg, "missing.md")
}

// =============================================================================
// EXPORT
// =============================================================================

func TestExport_Formats(t *testing.T) {
	src := writeDoc(t, t.TempDir(), "report.md", "# Quarterly Report\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")

	for _, format := range export.Formats() {
		t.Run(string(format), func(t *testing.T) {
			out := t.TempDir()
			res := runWithConfig(t, "export", src, "--format", string(format), "--out", out)
			require.Equal(t, ExitSuccess, res.code, res.stderr)
			assert.Contains(t, res.stdout, "Exported")

			entries, err := os.ReadDir(out)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			name := entries[0].Name()
			assert.True(t, strings.HasPrefix(name, "Quarterly_Report_"), name)
			assert.Equal(t, "."+string(format), filepath.Ext(name))
		})
	}
}

func TestExport_JSON(t *testing.T) {
	src := writeDoc(t, t.TempDir(), "notes.md", "# Notes\n")
	out := t.TempDir()

	res := runWithConfig(t, "--json", "export", src, "-f", "word", "-o", out)
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	ok, data, _ := jsonResult[ExportData](t, res.stdout)
	assert.True(t, ok)
	assert.Equal(t, "docx", data.Format)
	assert.Equal(t, out, filepath.Dir(data.Path))
	assert.Positive(t, data.Bytes)
}

func TestExport_Metadata(t *testing.T) {
	src := writeDoc(t, t.TempDir(), "draft.md", "# Draft: \"v2\"\n\nbody\n")

	readExport := func(t *testing.T, dir string) string {
		t.Helper()
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
		require.NoError(t, err)
		return string(data)
	}

	t.Run("flag", func(t *testing.T) {
		out := t.TempDir()
		res := runWithConfig(t, "export", src, "-f", "md", "-o", out, "--metadata")
		require.Equal(t, ExitSuccess, res.code, res.stderr)

		meta, body := document.Snapshot{Text: readExport(t, out)}.Split()
		assert.Equal(t, `Draft: "v2"`, meta.Title)
		assert.Equal(t, "# Draft: \"v2\"\n\nbody\n", strings.TrimLeft(body, "\n"))
	})

	t.Run("config", func(t *testing.T) {
		out := t.TempDir()
		cfgPath := writeConfig(t, "\n[export]\ninclude_metadata = true\n")
		res := runCLI(t, "--config", cfgPath, "export", src, "-f", "md", "-o", out)
		require.Equal(t, ExitSuccess, res.code, res.stderr)

		meta, _ := document.Snapshot{Text: readExport(t, out)}.Split()
		assert.Equal(t, `Draft: "v2"`, meta.Title)
	})

	t.Run("off by default", func(t *testing.T) {
		out := t.TempDir()
		res := runWithConfig(t, "export", src, "-f", "md", "-o", out)
		require.Equal(t, ExitSuccess, res.code, res.stderr)
		assert.Equal(t, "# Draft: \"v2\"\n\nbody\n", readExport(t, out))
	})
}

func TestExport_BadFormat(t *testing.T) {
	src := writeDoc(t, t.TempDir(), "notes.md", "# Notes\n")

	res := runWithConfig(t, "export", src, "--format", "odt")
	assert.Equal(t, ExitUsageError, res.code)
	assert.Contains(t, res.stderr, "invalid format")
	assert.Contains(t, res.stderr, "docx")
}

// =============================================================================
// LIST
// =============================================================================

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.md", "# A")
	writeDoc(t, dir, "docs/b.markdown", "# B")
	writeDoc(t, dir, "c.txt", "C")

	res := runWithConfig(t, "list", dir)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "a.md")
	assert.Contains(t, res.stdout, "docs/b.markdown")
	assert.NotContains(t, res.stdout, "c.txt")

	res = runWithConfig(t, "--json", "list", dir, "--limit", "1")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	_, files, _ := jsonResult[[]FileData](t, res.stdout)
	require.Len(t, files, 1)
	assert.Equal(t, "a.md", files[0].Path)
}

func TestList_Empty(t *testing.T) {
	res := runWithConfig(t, "list", t.TempDir())
	require.Equal(t, ExitSuccess, res.code)
	assert.Contains(t, res.stdout, "No Markdown files found")
}

// =============================================================================
// CONFIG AND EDITOR
// =============================================================================

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "mdsplit.toml")

	res := runCLI(t, "config", "init", "--config", path)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Wrote "+path)

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server.Port, cfg.Server.Port)

	res = runCLI(t, "config", "init", "--config", path)
	assert.Equal(t, ExitUsageError, res.code)
	assert.Contains(t, res.stderr, "already exists")

	res = runCLI(t, "--json", "config", "init", "--config", path, "--force")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	ok, data, _ := jsonResult[ConfigData](t, res.stdout)
	assert.True(t, ok)
	assert.Equal(t, path, data.Path)
}

func TestConfigInit_JSONAndDefaultPath(t *testing.T) {
	jsonPath := filepath.Join(t.TempDir(), "mdsplit.json")
	res := runCLI(t, "config", "init", "--config", jsonPath)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"))

	home := t.TempDir()
	t.Setenv("HOME", home)
	res = runCLI(t, "config", "init")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.FileExists(t, filepath.Join(home, ".mdsplit", "config.toml"))
}

func TestConfigShow(t *testing.T) {
	path := writeConfig(t, "\n[export]\npage_size = \"Letter\"\n")

	res := runCLI(t, "--config", path, "config", "show")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, `page_size = "Letter"`)

	res = runCLI(t, "--json", "--config", path, "config", "show")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	ok, cfg, _ := jsonResult[config.Config](t, res.stdout)
	assert.True(t, ok)
	assert.Equal(t, "Letter", cfg.Export.PageSize)

	res = runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "config", "show")
	assert.Equal(t, ExitConfigError, res.code)
}

func TestConfigErrors(t *testing.T) {
	doc := writeDoc(t, t.TempDir(), "doc.md", "# D")

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("this is = = not toml"), 0644))
	res := runCLI(t, "--config", bad, "render", doc)
	assert.Equal(t, ExitConfigError, res.code)

	invalid := writeConfig(t, "\n[editor]\ntab_width = 99\n")
	res = runCLI(t, "--config", invalid, "render", doc)
	assert.Equal(t, ExitConfigError, res.code)
}

func TestEditor_RequiresTerminal(t *testing.T) {
	if IsTTY() && IsStdoutTTY() {
		t.Skip("running in a terminal")
	}
	res := runWithConfig(t, writeDoc(t, t.TempDir(), "doc.md", "# D"))
	assert.Equal(t, ExitGeneralError, res.code)
	assert.Contains(t, res.stderr, "interactive terminal")
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", NewValidationError("format", "x", "bad", ""), ExitUsageError},
		{"unsupported format", fmt.Errorf("wrap: %w", export.ErrUnsupportedFormat), ExitUsageError},
		{"unsupported file", document.ErrUnsupportedFile, ExitUsageError},
		{"config", &ConfigError{Err: errors.New("x")}, ExitConfigError},
		{"config validation", config.ValidateErrors{{Field: "f", Message: "m"}}, ExitConfigError},
		{"not found", fmt.Errorf("load: %w", fs.ErrNotExist), ExitNotFoundError},
		{"command", NewCommandError("export", "pdf", errors.New("disk full")), ExitGeneralError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	err := NewValidationError("format", "odt", "unsupported", "mdsplit export a.md -f pdf")
	assert.Equal(t, "invalid format: unsupported (got: odt)\nExample: mdsplit export a.md -f pdf", err.Error())

	cmdErr := NewCommandError("export", "pdf", errors.New("disk full"))
	assert.Equal(t, "export failed: pdf: disk full", cmdErr.Error())
	assert.EqualError(t, errors.Unwrap(cmdErr), "disk full")
}
