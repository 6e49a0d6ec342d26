// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDirPerm is used for parent directories created by AtomicWriteFile.
const DefaultDirPerm os.FileMode = 0700

// RELIABILITY: Atomic write with fsync prevents data loss on crash
//
// AtomicWriteFile writes data to a temporary file in the target directory,
// syncs it, and renames it over path. Readers see either the old file or the
// complete new one, never a partial write. Conversation files hold chat
// history, so parent directories default to owner-only access.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return AtomicWriteFileWithDir(path, data, perm, DefaultDirPerm)
}

// AtomicWriteFileWithDir is AtomicWriteFile with explicit parent directory permissions.
func AtomicWriteFileWithDir(path string, data []byte, filePerm, dirPerm os.FileMode) (err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	// Same directory as the target, or the rename would not be atomic.
	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := f.Name()

	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync data to disk: %w", err)
	}
	// Close before rename; Windows refuses to rename open files.
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tempPath, filePerm); err != nil {
		return fmt.Errorf("set file permissions: %w", err)
	}
	if err = os.Rename(tempPath, absPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
