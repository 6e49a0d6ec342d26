// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream reads and decodes the SSE chat stream sent by the backend.
//
// A response body is a sequence of newline-terminated lines. Lines starting
// with "data:" carry a JSON chunk in the OpenAI chat-completions shape, or the
// literal [DONE] sentinel that ends the stream. Tool calls are multiplexed into
// the same chunks under delta.tool_calls.
//
// # Key Types
//
//   - Reader: Turns a byte stream into frame payloads, tolerant of any chunking
//   - Event: Decoded stream event (ContentDelta, ToolDelta, UsageDelta, Stop, Done, ...)
//   - TransportError: Fatal read failure
//   - DecodeError: One malformed frame, skipped by Process
//
// # Usage
//
//	err := stream.Process(ctx, resp.Body, func(ev stream.Event) error {
//	    switch ev := ev.(type) {
//	    case stream.ContentDelta:
//	        fmt.Print(ev.Text)
//	    }
//	    return nil
//	}, stream.WithLogger(log))
package stream
