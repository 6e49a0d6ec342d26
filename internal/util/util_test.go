// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conv.json")
	data := []byte(`{"id":"c1"}`)

	require.NoError(t, AtomicWriteFile(path, data, 0600))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, content)
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "deep", "conv.json")

	require.NoError(t, AtomicWriteFile(path, []byte("x"), 0600))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestAtomicWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conv.json")

	require.NoError(t, AtomicWriteFile(path, []byte("initial content"), 0600))
	require.NoError(t, AtomicWriteFile(path, []byte("new"), 0600))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func TestAtomicWriteFile_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		require.NoError(t, AtomicWriteFile(filepath.Join(dir, "conv.json"), []byte("data"), 0600))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "conv.json", entries[0].Name())
}

func TestAtomicWriteFile_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}
	path := filepath.Join(t.TempDir(), "conv.json")
	require.NoError(t, AtomicWriteFile(path, []byte("x"), 0600))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, TruncateRunes(tc.in, tc.max), "TruncateRunes(%q, %d)", tc.in, tc.max)
	}
}

func TestTruncateWidth(t *testing.T) {
	assert.Equal(t, "short", TruncateWidth("short", 10))
	assert.Equal(t, "", TruncateWidth("x", 0))

	out := TruncateWidth(strings.Repeat("x", 30), 10)
	assert.Equal(t, "xxxxxxx...", out)

	// Each CJK character is two columns wide.
	cjk := TruncateWidth("日本語のテキストです", 10)
	assert.LessOrEqual(t, StringWidth(cjk), 10)
	assert.True(t, strings.HasSuffix(cjk, "..."))
}
