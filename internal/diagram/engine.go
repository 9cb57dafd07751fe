// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diagram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// =============================================================================
// ENGINE INTERFACE
// =============================================================================

// Engine renders a diagram description to an SVG fragment.
// id is unique per render attempt and becomes the SVG element id.
type Engine interface {
	Render(ctx context.Context, id, source string) (string, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, id, source string) (string, error)

// Render calls f.
func (f EngineFunc) Render(ctx context.Context, id, source string) (string, error) {
	return f(ctx, id, source)
}

// ErrEmptySource is returned for blank diagram descriptions.
var ErrEmptySource = errors.New("diagram source is empty")

// ErrEngineUnavailable is returned when the renderer executable is missing.
var ErrEngineUnavailable = errors.New("diagram renderer not available")

// =============================================================================
// COMMAND RUNNER
// =============================================================================

// CommandRunner abstracts command execution so engines can be tested without
// real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
	LookPath(name string) (string, error)
}

// ExecRunner implements CommandRunner using os/exec. The process is killed
// when ctx is cancelled.
type ExecRunner struct{}

// Run executes name with args and returns its captured output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// LookPath resolves an executable on PATH.
func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// =============================================================================
// MERMAID CLI ENGINE
// =============================================================================

// MermaidCLI renders mermaid diagrams by invoking the mermaid-cli (mmdc).
type MermaidCLI struct {
	Command string
	Runner  CommandRunner
	// Background is passed to mmdc as the SVG background color.
	Background string
}

// NewMermaidCLI creates an engine running command (default "mmdc").
func NewMermaidCLI(command string) *MermaidCLI {
	if command == "" {
		command = "mmdc"
	}
	return &MermaidCLI{
		Command:    command,
		Runner:     ExecRunner{},
		Background: "transparent",
	}
}

// Available reports whether the mmdc executable can be found.
func (m *MermaidCLI) Available() bool {
	_, err := m.Runner.LookPath(m.Command)
	return err == nil
}

// Render writes source to a temporary directory, runs mmdc on it and
// returns the produced SVG.
func (m *MermaidCLI) Render(ctx context.Context, id, source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", ErrEmptySource
	}
	if !m.Available() {
		return "", fmt.Errorf("%w: %s", ErrEngineUnavailable, m.Command)
	}

	dir, err := os.MkdirTemp("", "mdsplit-diagram-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.mmd")
	out := filepath.Join(dir, "output.svg")
	if err := os.WriteFile(in, []byte(source), 0600); err != nil {
		return "", fmt.Errorf("write diagram source: %w", err)
	}

	args := []string{"-i", in, "-o", out, "-b", m.Background, "--svgId", id, "--quiet"}
	_, stderr, err := m.Runner.Run(ctx, m.Command, args...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return "", fmt.Errorf("mmdc: %s: %w", firstLine(msg), err)
		}
		return "", fmt.Errorf("mmdc: %w", err)
	}

	svg, err := os.ReadFile(out)
	if err != nil {
		return "", fmt.Errorf("read rendered diagram: %w", err)
	}
	return string(svg), nil
}

// firstLine returns the first non-empty line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return s
}
