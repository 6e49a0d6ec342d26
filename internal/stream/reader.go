// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/unicode"

	"github.com/it-at-m/mucgpt-sub002/internal/metrics"
)

// =============================================================================
// READER CONSTANTS
// =============================================================================

// DoneSentinel is the payload of the frame that terminates a stream.
const DoneSentinel = "[DONE]"

// DefaultMaxFrameSize is the largest line the reader accepts (4 MiB).
const DefaultMaxFrameSize = 4 << 20

const readBufferSize = 32 * 1024

// =============================================================================
// OPTIONS
// =============================================================================

type options struct {
	maxFrameSize int
	logger       *zerolog.Logger
	metrics      *metrics.Metrics
}

// ReaderOption configures a Reader or a Process call.
type ReaderOption func(*options)

// WithMaxFrameSize overrides DefaultMaxFrameSize. Values <= 0 are ignored.
func WithMaxFrameSize(n int) ReaderOption {
	return func(o *options) {
		if n > 0 {
			o.maxFrameSize = n
		}
	}
}

// WithLogger sets the logger used by Process for skipped frames.
func WithLogger(l zerolog.Logger) ReaderOption {
	return func(o *options) {
		o.logger = &l
	}
}

// WithMetrics records frame counters on m.
func WithMetrics(m *metrics.Metrics) ReaderOption {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []ReaderOption) options {
	o := options{maxFrameSize: DefaultMaxFrameSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// =============================================================================
// READER
// =============================================================================

// Frame is the payload of one data line: the text after "data:", trimmed.
type Frame string

// IsDone reports whether the frame is the [DONE] sentinel.
func (f Frame) IsDone() bool {
	return f == DoneSentinel
}

// Reader splits an SSE byte stream into frames.
//
// The source is decoded as UTF-8 incrementally, so a code point split
// across two reads is reassembled and the chunking of the source never
// changes the frames returned.
type Reader struct {
	br           *bufio.Reader
	maxFrameSize int
	done         bool
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	o := buildOptions(opts)
	dec := unicode.UTF8BOM.NewDecoder()
	return &Reader{
		br:           bufio.NewReaderSize(dec.Reader(r), readBufferSize),
		maxFrameSize: o.maxFrameSize,
	}
}

// Next returns the next frame. It returns io.EOF once the source is
// exhausted or after the [DONE] frame has been returned. Any other error
// is a *TransportError and ends the stream.
func (r *Reader) Next(ctx context.Context) (Frame, error) {
	for {
		if r.done {
			return "", io.EOF
		}
		if err := ctx.Err(); err != nil {
			r.done = true
			return "", &TransportError{Err: err}
		}

		line, err := r.readLine()
		atEOF := errors.Is(err, io.EOF)
		if err != nil && !atEOF {
			r.done = true
			// A canceled request surfaces as a body read error; report the cause.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", &TransportError{Err: ctxErr}
			}
			return "", &TransportError{Err: err}
		}
		if atEOF {
			r.done = true
		}

		payload, ok := parseLine(line)
		if !ok {
			continue
		}
		frame := Frame(payload)
		if frame.IsDone() {
			r.done = true
		}
		return frame, nil
	}
}

// readLine reads up to and including the next '\n'. At EOF the
// unterminated remainder is returned together with io.EOF.
func (r *Reader) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		if len(line)+len(chunk) > r.maxFrameSize {
			return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFrameTooLarge, r.maxFrameSize)
		}
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, err
	}
}

// parseLine extracts the payload of a data line. Blank lines, comments
// other SSE fields and empty data lines report ok=false.
func parseLine(line []byte) (string, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, []byte("data:")) {
		return "", false
	}
	payload := bytes.TrimSpace(line[len("data:"):])
	if len(payload) == 0 {
		return "", false
	}
	return string(payload), true
}
