// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern matches Markdown files at any depth.
const DefaultPattern = "**/*.{md,markdown,MD,MARKDOWN,Markdown}"

// DefaultExclude skips hidden entries and dependency directories.
var DefaultExclude = []string{
	"**/.*",
	"**/.*/**",
	"**/node_modules/**",
	"**/vendor/**",
}

// errLimit stops a walk once MaxResults files were found.
var errLimit = errors.New("result limit reached")

// Options configures discovery.
type Options struct {
	// Patterns are doublestar globs relative to the root.
	Patterns []string
	// Exclude drops files matching any of these globs.
	Exclude []string
	// MaxResults stops discovery early; zero means no limit.
	MaxResults int
}

// DefaultOptions returns the options used by the open picker and list.
func DefaultOptions() *Options {
	return &Options{
		Patterns: []string{DefaultPattern},
		Exclude:  DefaultExclude,
	}
}

// File is a discovered document.
type File struct {
	// Rel is the slash-separated path relative to the root.
	Rel     string
	Path    string
	Size    int64
	ModTime time.Time
}

// Discover lists files under root matching opts, sorted by relative path.
func Discover(root string, opts *Options) ([]File, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = []string{DefaultPattern}
	}
	for _, p := range append(append([]string(nil), patterns...), opts.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("discover %s: not a directory", root)
	}

	fsys := os.DirFS(abs)
	seen := make(map[string]bool)
	var files []File

	for _, pattern := range patterns {
		err := doublestar.GlobWalk(fsys, pattern, func(rel string, d fs.DirEntry) error {
			if seen[rel] || excluded(rel, opts.Exclude) {
				return nil
			}
			seen[rel] = true

			fi, err := d.Info()
			if err != nil {
				return nil
			}
			files = append(files, File{
				Rel:     rel,
				Path:    filepath.Join(abs, filepath.FromSlash(rel)),
				Size:    fi.Size(),
				ModTime: fi.ModTime(),
			})
			if opts.MaxResults > 0 && len(files) >= opts.MaxResults {
				return errLimit
			}
			return nil
		}, doublestar.WithFilesOnly())
		if err != nil && !errors.Is(err, errLimit) {
			return nil, fmt.Errorf("discover %s: %w", root, err)
		}
		if opts.MaxResults > 0 && len(files) >= opts.MaxResults {
			break
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	return files, nil
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
