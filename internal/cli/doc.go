// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the mucgpt command line.
//
// Commands are built with cobra and share one App, which owns the loaded
// configuration, the process logger, the metrics registry and the
// conversation store.
//
// # Key Types
//
//   - App: Shared state and resources of one invocation
//   - JSONResponse: Machine-readable output for --json
//
// # Usage
//
//	os.Exit(cli.Execute())
//
// # Commands Overview
//
// Chat:
//   - ask: One-shot streamed answer
//   - chat: Interactive session with slash commands
//   - retry, regenerate, rollback: Edit the end of a stored conversation
//
// Conversations:
//   - list, show, rename, favorite, delete
//   - export, import
//
// Tooling:
//   - config: Show, initialize and edit the configuration
//   - replay: Serve a scripted event stream as a local backend
//   - version: Print build information
//
// All commands support --json for machine-readable output.
package cli
