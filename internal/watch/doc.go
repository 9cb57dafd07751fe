// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch reports changes to the open document's file.
//
// The fsnotify watcher observes the file's directory, so editors that save
// by writing a new file and renaming it over the old one are still seen.
// Bursts of events are debounced into one callback. A polling watcher is
// used when fsnotify is unavailable.
package watch
