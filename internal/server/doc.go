// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the local live-preview HTTP server.
//
// The server shares a document.Document with the editor and serves it as a
// rendered page that reloads itself whenever the text, the modes or a
// diagram state change.
//
// # Endpoints
//
//   - GET  /                       - Preview page
//   - GET  /live.js                - Live reload script
//   - GET  /api/stamp              - Change stamp polled by live.js
//   - GET  /api/document           - Document text, title and modes
//   - PUT  /api/document           - Replace the text (edit mode only)
//   - POST /api/modes              - Set edit and preview flags
//   - POST /api/render             - Render a Markdown body to HTML
//   - GET  /api/diagrams           - All diagram states
//   - GET  /api/diagrams/{index}   - One diagram state
//   - GET  /export/{format}        - Download as md, html, docx or pdf
//   - GET  /health                 - Health check
//
// # Middleware
//
// Requests pass through panic recovery, security headers, zap request
// logging, per-IP rate limiting and a request body limit.
//
// # Usage
//
//	srv := server.NewServer(doc, renderer, diagrams).WithConfig(cfg)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
