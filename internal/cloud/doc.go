// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the HTTP client for the MUCGPT chat backend.
//
// The backend answers a POSTed chat request with a server-sent event stream.
// This package only opens that stream; decoding belongs to package stream.
//
// # Key Types
//
//   - Client: resty-based client with retry and bearer authentication
//   - ChatRequest: request body sent to the chat endpoint
//   - BackendError: non-2xx response received before the stream started
//
// # Usage
//
//	client := cloud.NewClient("https://mucgpt.example.org").WithAPIKey(key)
//	body, err := client.Stream(ctx, cloud.NewChatRequest(turns, cfg))
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
//	err = stream.Process(ctx, body, handler)
//
// # Security
//
// API keys are never logged. Only the method, path, status and duration of
// a request are written to the debug log.
package cloud
