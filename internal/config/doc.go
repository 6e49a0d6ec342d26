// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for mucgpt.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Chat backend URL, credentials and retry policy
//   - ChatConfig: Request defaults applied to new conversations
//   - StreamConfig: Frame limits and UI refresh timing
//   - StorageConfig: Persistence engine selection
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (MUCGPT_*)
//   - ~/.mucgpt/config.toml
//   - ~/.mucgpt/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	url := cfg.Backend.BaseURL
//	debounce := cfg.Stream.Debounce()
package config
