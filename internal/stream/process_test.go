// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(events *[]Event) Handler {
	return func(ev Event) error {
		*events = append(*events, ev)
		return nil
	}
}

func TestProcess_ScenarioA(t *testing.T) {
	in := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hel\"},\"finish_reason\":null}]}\n\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"lo\"},\"finish_reason\":null}]}\n\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n" +
		"data: [DONE]\n\n"

	var events []Event
	err := Process(context.Background(), iotest.OneByteReader(strings.NewReader(in)), collect(&events))
	require.NoError(t, err)

	assert.Equal(t, []Event{
		ContentDelta{Text: "Hel"},
		ContentDelta{Text: "lo"},
		Stop{Reason: "stop"},
		Done{},
	}, events)
}

func TestProcess_SkipsMalformedFrames(t *testing.T) {
	in := "data: {not json\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n"
	var logBuf bytes.Buffer
	log := zerolog.New(&logBuf)

	var events []Event
	err := Process(context.Background(), strings.NewReader(in), collect(&events), WithLogger(log))
	require.NoError(t, err)

	assert.Equal(t, []Event{ContentDelta{Text: "ok"}}, events)
	assert.Contains(t, logBuf.String(), "Skipping malformed stream frame")
}

func TestProcess_HandlerErrorStops(t *testing.T) {
	in := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n"
	stop := errors.New("stop here")

	calls := 0
	err := Process(context.Background(), strings.NewReader(in), func(Event) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestProcess_TransportErrorAfterFrames(t *testing.T) {
	r := iotest.TimeoutReader(strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"part\"}}]}\n"))

	var events []Event
	err := Process(context.Background(), r, collect(&events), WithLogger(zerolog.Nop()))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, iotest.ErrTimeout)
	assert.Equal(t, []Event{ContentDelta{Text: "part"}}, events)
}
