// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diagram renders diagram-description blocks (mermaid) to SVG.
//
// Rendering is asynchronous. A Controller owns one diagram block and is
// re-triggered through Update whenever the block's source or the preview
// flag changes. Every trigger bumps a generation counter and cancels the
// previous render; a completion is applied only if its generation is still
// current, so an out-of-order completion can never replace a newer diagram.
//
// # Key Types
//
//   - Engine: turns source into SVG (MermaidCLI shells out to mmdc)
//   - Controller: per-block state machine with the generation guard
//   - Set: one Controller per diagram block of a document
//   - State: Placeholder, Rendering, Rendered or Failed
//
// Failures stay inside the Controller: they become a Failed state carrying a
// localized message and never abort the rest of the preview.
package diagram
