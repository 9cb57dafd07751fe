// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a document to Markdown, HTML, Word or PDF.
//
// The Word and PDF exporters share one pipeline: the Markdown is rendered
// to HTML, the markdown-body element is located, and its direct children
// are mapped to a flat list of Blocks which each serializer lays out.
//
// # Key Types
//
//   - Exporter: Export, FileExtension, MimeType
//   - Block: one mapped element (heading, paragraph, code, list item,
//     table, quote)
//   - Options: output directory, page size, HTML theme and custom CSS
//
// # Usage
//
//	exp, err := export.ForFormat("docx", renderer, opts)
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(doc.Snapshot(), exp, opts)
package export
