// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the storage, config and CLI packages.
//
// # Key Functions
//
//   - AtomicWriteFile: Crash-safe file writing with fsync and rename
//   - TruncateWidth: Display-width aware truncation for conversation names
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	name := util.TruncateWidth(question, 50)
package util
