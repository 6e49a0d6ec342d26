// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a replay chat backend that serves scripted
// event streams.
//
// The server accepts the same request body the cloud client sends and
// answers with a prepared SSE transcript. Responses can be re-chunked at
// arbitrary byte boundaries and delayed, which makes it useful for
// exercising the stream reader against realistic network splits.
//
// # Endpoints
//
//   - POST <chat path>  - Stream the next scripted response
//   - GET  /health      - Health check
//   - GET  /stats       - Request counters
//
// # Key Types
//
//   - Server: HTTP server with router and middleware
//   - Config: Listen address, chat path, chunking and auth
//   - Script: Ordered responses, loaded from YAML or raw SSE
//
// # Usage
//
//	script, err := server.LoadScript("transcript.yaml")
//	if err != nil {
//		return err
//	}
//	srv := server.New(server.Config{Addr: "127.0.0.1:8080", ChunkSize: 7}, script)
//	if err := srv.Start(); err != nil {
//		return err
//	}
package server
