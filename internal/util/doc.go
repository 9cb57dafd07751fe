// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across mdsplit packages.
//
// # Atomic Writes
//
// AtomicWriteFile writes to a temporary file in the target directory, syncs
// it and renames it over the destination, so a reader sees either the old
// file or the complete new one. Saved documents, exports and the config file
// all go through it.
//
// # Display Width
//
// StringWidth and TruncateWidth measure terminal columns (CJK and emoji take
// two) using github.com/mattn/go-runewidth.
package util
