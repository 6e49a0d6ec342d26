// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"

	"github.com/it-at-m/mucgpt-sub002/internal/logging"
)

// Handler receives events in stream order. Returning an error stops Process.
type Handler func(Event) error

// Process reads frames from r, decodes them and passes each event to fn.
//
// Malformed frames are logged and skipped. Process returns nil at EOF or
// after the Done event, a *TransportError when reading fails, or the
// first error returned by fn.
func Process(ctx context.Context, r io.Reader, fn Handler, opts ...ReaderOption) error {
	o := buildOptions(opts)
	log := logging.OrDefault(o.logger)
	rd := NewReader(r, opts...)

	for {
		frame, err := rd.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		o.metrics.FrameRead()

		events, err := Decode(string(frame))
		if err != nil {
			o.metrics.DecodeError()
			log.Warn().Err(err).Int("bytes", len(frame)).Msg("Skipping malformed stream frame")
			continue
		}

		for _, ev := range events {
			if err := fn(ev); err != nil {
				return err
			}
			if _, ok := ev.(Done); ok {
				return nil
			}
		}
	}
}
