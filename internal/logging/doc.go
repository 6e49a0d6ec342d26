// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the structured logger used across mucgpt.
//
// Logs go to stderr so streamed answers on stdout stay clean. The format is
// either "console" (human readable) or "json".
//
//	log, err := logging.New("debug", "console", os.Stderr)
//	logging.Set(log)
//	logging.Get().Warn().Str("frame", payload).Msg("skipping malformed frame")
package logging
