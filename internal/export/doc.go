// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes stored conversations to Markdown or JSON.
//
// # Key Types
//
//   - Exporter: Main export interface
//   - MarkdownExporter: Markdown with YAML front matter
//   - JSONExporter: Versioned JSON document with the full conversation
//   - Options: Export configuration options
//
// # Usage
//
// Export a conversation to a file:
//
//	exporter, err := export.ForFormat("md", opts)
//	path, err := export.ExportToFile(conv, exporter, opts)
//
// Or write it to any writer:
//
//	err := export.Write(os.Stdout, conv, exporter)
package export
