// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleStream mixes content, tools, usage, multi-byte text and SSE noise.
const sampleStream = ": keep-alive\n" +
	"data: {\"choices\":[{\"index\":0,\"delta\":{\"tool_calls\":[{\"name\":\"Brainstorming\",\"state\":\"started\",\"content\":\"go\",\"metadata\":{\"k\":1}}]},\"finish_reason\":null}]}\n\n" +
	"data: {\"choices\":[{\"index\":0,\"delta\":{\"tool_calls\":[{\"name\":\"Brainstorming\",\"state\":\"APPEND\",\"content\":\"# Thema \\u00fcber\\n\"}]},\"finish_reason\":null}]}\n\n" +
	"event: message\r\n" +
	"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Grüße \"},\"finish_reason\":null}]}\r\n\r\n" +
	"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"aus München 👋\"},\"finish_reason\":null}]}\n\n" +
	"data: {\"choices\":[],\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":3}}\n\n" +
	"data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n" +
	"data: [DONE]\n\n"

func readAllFrames(t *testing.T, r io.Reader) []Frame {
	t.Helper()
	rd := NewReader(r)
	var frames []Frame
	for {
		f, err := rd.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func decodeFrames(t *testing.T, frames []Frame) []Event {
	t.Helper()
	var events []Event
	for _, f := range frames {
		evs, err := Decode(string(f))
		require.NoError(t, err)
		events = append(events, evs...)
	}
	return events
}

// =============================================================================
// FRAMING TESTS
// =============================================================================

func TestReader_FramesInOrder(t *testing.T) {
	frames := readAllFrames(t, strings.NewReader(sampleStream))

	require.Len(t, frames, 7)
	assert.True(t, frames[6].IsDone())
	assert.Contains(t, string(frames[2]), "Grüße")
}

func TestReader_ChunkSplitInvariance(t *testing.T) {
	data := []byte(sampleStream)
	want := decodeFrames(t, readAllFrames(t, bytes.NewReader(data)))

	for i := 1; i < len(data); i++ {
		r := io.MultiReader(bytes.NewReader(data[:i]), bytes.NewReader(data[i:]))
		got := decodeFrames(t, readAllFrames(t, r))
		if !assert.Equal(t, want, got, "split at byte %d", i) {
			return
		}
	}
}

func TestReader_OneByteAndHalfReads(t *testing.T) {
	want := readAllFrames(t, strings.NewReader(sampleStream))

	assert.Equal(t, want, readAllFrames(t, iotest.OneByteReader(strings.NewReader(sampleStream))))
	assert.Equal(t, want, readAllFrames(t, iotest.HalfReader(strings.NewReader(sampleStream))))
	assert.Equal(t, want, readAllFrames(t, iotest.DataErrReader(strings.NewReader(sampleStream))))
}

func TestReader_SplitInsideCodePoint(t *testing.T) {
	wave := []byte("data: 👋\n")
	// The emoji starts at byte 6 and is four bytes long.
	for i := 7; i < 10; i++ {
		r := io.MultiReader(bytes.NewReader(wave[:i]), bytes.NewReader(wave[i:]))
		frames := readAllFrames(t, r)
		require.Len(t, frames, 1)
		assert.Equal(t, Frame("👋"), frames[0])
	}
}

func TestReader_InvalidUTF8BecomesReplacement(t *testing.T) {
	frames := readAllFrames(t, strings.NewReader("data: a\xffb\n"))

	require.Len(t, frames, 1)
	assert.Equal(t, Frame("a�b"), frames[0])
}

func TestReader_SkipsNonDataLines(t *testing.T) {
	in := ": comment\nevent: x\nid: 3\nretry: 100\n\ndata:\ndata:payload\n"
	frames := readAllFrames(t, strings.NewReader(in))

	assert.Equal(t, []Frame{"payload"}, frames)
}

func TestReader_StopsAfterDone(t *testing.T) {
	in := "data: one\ndata: [DONE]\ndata: two\n"
	frames := readAllFrames(t, strings.NewReader(in))

	assert.Equal(t, []Frame{"one", DoneSentinel}, frames)
}

func TestReader_UnterminatedFinalLine(t *testing.T) {
	frames := readAllFrames(t, strings.NewReader("data: one\ndata: two"))

	assert.Equal(t, []Frame{"one", "two"}, frames)
}

func TestReader_LeadingBOM(t *testing.T) {
	frames := readAllFrames(t, strings.NewReader("\ufeffdata: one\n"))

	assert.Equal(t, []Frame{"one"}, frames)
}

// =============================================================================
// FAILURE TESTS
// =============================================================================

func TestReader_ReadErrorIsFatal(t *testing.T) {
	boom := errors.New("connection reset")
	rd := NewReader(io.MultiReader(strings.NewReader("data: a\n"), iotest.ErrReader(boom)))
	ctx := context.Background()

	f, err := rd.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, Frame("a"), f)

	_, err = rd.Next(ctx)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, boom)

	_, err = rd.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_FrameTooLarge(t *testing.T) {
	in := "data: ok\ndata: " + strings.Repeat("x", 64) + "\n"
	rd := NewReader(strings.NewReader(in), WithMaxFrameSize(32))
	ctx := context.Background()

	f, err := rd.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, Frame("ok"), f)

	_, err = rd.Next(ctx)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestReader_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader(strings.NewReader("data: a\n")).Next(ctx)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, context.Canceled)
}
