// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jeranaias/mdsplit/internal/logging"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 200 * time.Millisecond

// ChangeFunc is called with the watched path after it changed. It runs on
// the watcher's goroutine.
type ChangeFunc func(path string)

// =============================================================================
// FILE WATCHER INTERFACE
// =============================================================================

// FileWatcher is the interface for file watching implementations
type FileWatcher interface {
	// Watch starts watching for file changes
	Watch() error

	// Close stops watching and releases resources
	Close() error
}

// New returns an fsnotify watcher for path, falling back to polling when
// fsnotify cannot be initialized. Watch must be called to start it.
func New(path string, debounce time.Duration, onChange ChangeFunc) FileWatcher {
	fw, err := NewFsnotifyWatcher(path, debounce, onChange)
	if err == nil {
		return fw
	}
	logging.Get().Warn("fsnotify unavailable, polling instead", zap.Error(err))
	return NewPollingWatcher(path, debounce*2, onChange)
}

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// FsnotifyWatcher implements FileWatcher using fsnotify
type FsnotifyWatcher struct {
	path     string
	onChange ChangeFunc
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending time.Time // last unreported change; zero when none

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFsnotifyWatcher creates a new fsnotify-based watcher
func NewFsnotifyWatcher(path string, debounce time.Duration, onChange ChangeFunc) (*FsnotifyWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &FsnotifyWatcher{
		path:     abs,
		onChange: onChange,
		watcher:  watcher,
		debounce: debounce,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Path returns the absolute watched path.
func (fw *FsnotifyWatcher) Path() string {
	return fw.path
}

// Watch starts watching for file changes
func (fw *FsnotifyWatcher) Watch() error {
	if err := fw.watcher.Add(filepath.Dir(fw.path)); err != nil {
		return fmt.Errorf("watch %s: %w", fw.path, err)
	}

	fw.wg.Add(2)
	go fw.processEvents()
	go fw.processPending()
	return nil
}

// processEvents records changes to the watched file
func (fw *FsnotifyWatcher) processEvents() {
	defer fw.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logging.Get().Error("file watcher panic", zap.Any("panic", r))
		}
	}()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			// Write covers in-place saves, Create covers rename-over saves.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				fw.mu.Lock()
				fw.pending = time.Now()
				fw.mu.Unlock()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get().Warn("file watcher error", zap.String("path", fw.path), zap.Error(err))
		}
	}
}

// processPending reports a change once no event arrived for the debounce
// period
func (fw *FsnotifyWatcher) processPending() {
	defer fw.wg.Done()

	tick := fw.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case now := <-ticker.C:
			fw.mu.Lock()
			due := !fw.pending.IsZero() && now.Sub(fw.pending) >= fw.debounce
			if due {
				fw.pending = time.Time{}
			}
			fw.mu.Unlock()

			if due && fw.onChange != nil {
				logging.Get().Debug("watched file changed", zap.String("path", fw.path))
				fw.onChange(fw.path)
			}
		}
	}
}

// Close stops watching and releases resources
func (fw *FsnotifyWatcher) Close() error {
	fw.cancel()
	err := fw.watcher.Close()
	fw.wg.Wait()
	return err
}

// =============================================================================
// POLLING WATCHER (FALLBACK)
// =============================================================================

// PollingWatcher implements FileWatcher using periodic polling
type PollingWatcher struct {
	path     string
	onChange ChangeFunc
	interval time.Duration

	mu      sync.Mutex
	modTime time.Time
	size    int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPollingWatcher creates a new polling-based watcher
func NewPollingWatcher(path string, interval time.Duration, onChange ChangeFunc) *PollingWatcher {
	if interval <= 0 {
		interval = 2 * DefaultDebounce
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &PollingWatcher{
		path:     path,
		onChange: onChange,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Watch starts watching for file changes
func (pw *PollingWatcher) Watch() error {
	info, err := os.Stat(pw.path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", pw.path, err)
	}
	pw.mu.Lock()
	pw.modTime = info.ModTime()
	pw.size = info.Size()
	pw.mu.Unlock()

	pw.wg.Add(1)
	go pw.poll()
	return nil
}

// poll periodically checks for file changes
func (pw *PollingWatcher) poll() {
	defer pw.wg.Done()

	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-pw.ctx.Done():
			return

		case <-ticker.C:
			if pw.checkChanges() && pw.onChange != nil {
				pw.onChange(pw.path)
			}
		}
	}
}

// checkChanges reports whether the file's size or modification time moved.
// A missing file is not a change; it is reported once it reappears.
func (pw *PollingWatcher) checkChanges() bool {
	info, err := os.Stat(pw.path)
	if err != nil {
		return false
	}

	pw.mu.Lock()
	defer pw.mu.Unlock()
	if info.ModTime().Equal(pw.modTime) && info.Size() == pw.size {
		return false
	}
	pw.modTime = info.ModTime()
	pw.size = info.Size()
	return true
}

// Close stops watching and releases resources
func (pw *PollingWatcher) Close() error {
	pw.cancel()
	pw.wg.Wait()
	return nil
}
