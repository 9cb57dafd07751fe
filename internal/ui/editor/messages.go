// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"github.com/jeranaias/mdsplit/internal/diagram"
	"github.com/jeranaias/mdsplit/internal/workspace"
)

// =============================================================================
// DIAGRAM MESSAGES
// =============================================================================

// DiagramEventMsg reports a diagram state change.
type DiagramEventMsg diagram.Event

// =============================================================================
// FILE MESSAGES
// =============================================================================

// FileChangedMsg reports that the open file changed on disk.
type FileChangedMsg struct {
	Path string
}

// FilesDiscoveredMsg delivers the open picker's file list.
type FilesDiscoveredMsg struct {
	Files []workspace.File
	Err   error
}

// SavedMsg reports the outcome of a save.
type SavedMsg struct {
	Path string
	Err  error
}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportDoneMsg reports the outcome of an export.
type ExportDoneMsg struct {
	Format string
	Path   string
	Err    error
}

// ClipboardMsg reports the outcome of copying HTML to the clipboard.
type ClipboardMsg struct {
	Bytes int
	Err   error
}
