// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document holds the editor's document state.
//
// A Document is the single mutable entity of mdsplit: the raw Markdown text
// plus two independent view flags, EditMode and PreviewMode. Everything the
// user sees (terminal preview, HTML preview, diagrams, exports) is derived
// from an immutable Snapshot of it.
//
// # Key Types
//
//   - Document: mutex-protected text and mode flags
//   - Modes: the two view flags
//   - Snapshot: immutable copy handed to renderers and exporters
//
// # File Handling
//
// LoadFile accepts .md and .markdown files only, rejects binary content and
// decodes the bytes as UTF-8 (a leading byte order mark is dropped). Loading
// always forces both mode flags off. SaveFile writes atomically.
package document
