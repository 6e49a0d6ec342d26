// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"fmt"
)

// ErrFrameTooLarge indicates a line exceeded the configured maximum frame size.
var ErrFrameTooLarge = errors.New("frame too large")

// TransportError is a fatal failure reading the response body.
// Frames returned before the failure remain valid.
type TransportError struct {
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("stream transport error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is a single frame that could not be decoded.
// It is never fatal for the stream.
type DecodeError struct {
	Payload string
	Err     error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed stream frame: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
