// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MODE TESTS
// =============================================================================

func TestModes_ToggleNeverMutatesText(t *testing.T) {
	const text = "# Title\n\nbody"
	d := NewWithText(text)
	rev := d.Revision()

	for i := 0; i < 5; i++ {
		d.ToggleEdit()
		assert.Equal(t, text, d.Text())
		d.TogglePreview()
		assert.Equal(t, text, d.Text())
	}
	d.SetEditMode(true)
	d.SetPreviewMode(false)
	d.SetModes(Modes{EditMode: false, PreviewMode: true})

	assert.Equal(t, text, d.Text())
	assert.Equal(t, rev, d.Revision())
}

func TestModes_Independent(t *testing.T) {
	d := New()
	assert.Equal(t, Modes{}, d.Modes())

	assert.True(t, d.ToggleEdit())
	assert.Equal(t, Modes{EditMode: true}, d.Modes())

	assert.True(t, d.TogglePreview())
	assert.Equal(t, Modes{EditMode: true, PreviewMode: true}, d.Modes())

	assert.False(t, d.ToggleEdit())
	assert.Equal(t, Modes{PreviewMode: true}, d.Modes())
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoad_PopulatesTextAndResetsModes(t *testing.T) {
	d := NewWithText("old")
	d.SetModes(Modes{EditMode: true, PreviewMode: true})

	d.Load("notes.md", []byte("# New\n\ncontent\n"))

	assert.Equal(t, "# New\n\ncontent\n", d.Text())
	assert.Equal(t, Modes{}, d.Modes())
	assert.Equal(t, "notes.md", d.Path())
	assert.False(t, d.Dirty())
}

func TestLoad_StripsBOM(t *testing.T) {
	d := New()
	d.Load("bom.md", append([]byte{0xEF, 0xBB, 0xBF}, []byte("héllo")...))
	assert.Equal(t, "héllo", d.Text())
}

func TestLoad_ReplacesInvalidUTF8(t *testing.T) {
	d := New()
	d.Load("bad.md", []byte{'a', 0xff, 'b'})
	assert.Equal(t, "a�b", d.Text())
}

func TestDirty(t *testing.T) {
	d := New()
	d.Load("a.md", []byte("one"))
	assert.False(t, d.Dirty())

	d.SetText("two")
	assert.True(t, d.Dirty())

	d.MarkSaved("a.md", "two")
	assert.False(t, d.Dirty())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readme.MD")
	require.NoError(t, os.WriteFile(path, []byte("# Readme\n"), 0644))

	d := New()
	d.SetModes(Modes{EditMode: true, PreviewMode: true})
	require.NoError(t, d.LoadFile(path, 0))

	assert.Equal(t, "# Readme\n", d.Text())
	assert.Equal(t, Modes{}, d.Modes())
	assert.Equal(t, path, d.Path())
}

func TestLoadFile_Rejects(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("text"), 0644))

	bin := filepath.Join(dir, "image.md")
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	require.NoError(t, os.WriteFile(bin, png, 0644))

	big := filepath.Join(dir, "big.md")
	require.NoError(t, os.WriteFile(big, make([]byte, 64), 0644))

	d := NewWithText("keep")

	err := d.LoadFile(txt, 0)
	assert.True(t, errors.Is(err, ErrUnsupportedFile))

	err = d.LoadFile(bin, 0)
	assert.True(t, errors.Is(err, ErrBinaryContent))

	err = d.LoadFile(big, 10)
	assert.True(t, errors.Is(err, ErrFileTooLarge))

	err = d.LoadFile(filepath.Join(dir, "missing.md"), 0)
	assert.Error(t, err)

	assert.Equal(t, "keep", d.Text(), "failed loads must not touch the document")
}

func TestSaveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.md")
	d := NewWithText("# Saved\n")

	got, err := d.SaveFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.False(t, d.Dirty())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Saved\n", string(data))

	_, err = New().SaveFile("")
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0644))

	d := New()
	require.NoError(t, d.LoadFile(path, 0))
	d.SetPreviewMode(true)

	changed, err := d.Reload(0)
	require.NoError(t, err)
	assert.False(t, changed, "unchanged file")

	require.NoError(t, os.WriteFile(path, []byte("two"), 0644))
	changed, err = d.Reload(0)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "two", d.Text())
	assert.Equal(t, Modes{PreviewMode: true}, d.Modes())

	d.SetText("local edit")
	require.NoError(t, os.WriteFile(path, []byte("three"), 0644))
	changed, err = d.Reload(0)
	assert.True(t, errors.Is(err, ErrUnsavedChanges))
	assert.False(t, changed)
	assert.Equal(t, "local edit", d.Text())

	changed, err = NewWithText("x").Reload(0)
	assert.NoError(t, err)
	assert.False(t, changed)
}

func TestLoadSample(t *testing.T) {
	d := New()
	d.LoadSample()
	assert.Contains(t, d.Text(), "# Welcome to mdsplit")
	assert.Equal(t, "Welcome to mdsplit", d.Title())
}

// =============================================================================
// SNAPSHOT TESTS
// =============================================================================

func TestSnapshot_Title(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		path     string
		expected string
	}{
		{"front matter", "---\ntitle: From Meta\n---\n# Heading\n", "", "From Meta"},
		{"heading", "intro\n\n# The Heading #\n", "", "The Heading"},
		{"heading in fence ignored", "```\n# not a title\n```\n", "/tmp/notes.md", "notes"},
		{"path", "no heading", "/docs/guide.markdown", "guide"},
		{"default", "", "", DefaultTitle},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap := Snapshot{Text: tc.text, Path: tc.path}
			assert.Equal(t, tc.expected, snap.Title())
		})
	}
}

func TestSnapshot_Body(t *testing.T) {
	snap := Snapshot{Text: "---\ntitle: T\ntags: [a, b]\n---\n# Body\n"}
	meta, body := snap.Split()

	assert.Equal(t, "T", meta.Title)
	assert.Equal(t, []string{"a", "b"}, meta.Tags)
	assert.Equal(t, "# Body", strings.TrimSpace(body))

	plain := Snapshot{Text: "# Only body\n"}
	assert.Equal(t, "# Only body\n", plain.Body())
}

func TestDocument_ConcurrentAccess(t *testing.T) {
	d := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			d.SetText("text")
		}()
		go func() {
			defer wg.Done()
			d.TogglePreview()
		}()
		go func() {
			defer wg.Done()
			_ = d.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, "text", d.Text())
}
