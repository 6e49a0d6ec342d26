// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package toolcall

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/it-at-m/mucgpt-sub002/internal/metrics"
	"github.com/it-at-m/mucgpt-sub002/internal/model"
)

func newTestTracker(buf *bytes.Buffer) *Tracker {
	return NewTracker(
		WithLogger(zerolog.New(buf).Level(zerolog.DebugLevel)),
		WithClock(func() time.Time { return t0 }),
		WithMetrics(metrics.New()),
	)
}

func TestTracker_Lifecycle(t *testing.T) {
	var logs bytes.Buffer
	tr := newTestTracker(&logs)

	_, changed := tr.Apply(delta("Brainstorming", "STARTED", "go"))
	assert.True(t, changed)
	assert.True(t, tr.HasActiveTools())

	_, changed = tr.Apply(delta("Brainstorming", "APPEND", "# Topic\n"))
	assert.False(t, changed)

	b, changed := tr.Apply(delta("Brainstorming", "ENDED", "done"))
	assert.True(t, changed)
	assert.Equal(t, "# Topic\n", b.Content)
	assert.False(t, tr.HasActiveTools())

	statuses := tr.ActiveStatuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, model.ToolEnded, statuses[0].State)
	assert.Equal(t, t0, statuses[0].Timestamp)

	assert.Equal(t, "```MUCGPTBrainstorming\n# Topic\n\n```", tr.Render())
}

func TestTracker_LogsProtocolViolation(t *testing.T) {
	var logs bytes.Buffer
	tr := newTestTracker(&logs)

	tr.Apply(delta("T", "APPEND", "x"))

	assert.Contains(t, logs.String(), "starting buffer implicitly")
	assert.True(t, tr.HasActiveTools())
}

func TestTracker_IgnoresUnknownState(t *testing.T) {
	var logs bytes.Buffer
	tr := newTestTracker(&logs)

	_, changed := tr.Apply(delta("T", "PAUSED", "x"))

	assert.False(t, changed)
	assert.Equal(t, 0, tr.Snapshot().Len())
	assert.Contains(t, logs.String(), "unknown state")
}

func TestTracker_IgnoresNamelessEvent(t *testing.T) {
	var logs bytes.Buffer
	tr := newTestTracker(&logs)

	_, changed := tr.Apply(delta("", "APPEND", "x"))

	assert.False(t, changed)
	assert.Equal(t, 0, tr.Snapshot().Len())
	assert.Empty(t, tr.Render())
	assert.Contains(t, logs.String(), "without a name")
}

func TestTracker_RollbackNotRetained(t *testing.T) {
	var logs bytes.Buffer
	tr := newTestTracker(&logs)

	tr.Apply(delta("T", "STARTED", ""))
	b, changed := tr.Apply(delta("T", "ROLLBACK", ""))

	assert.True(t, changed)
	assert.Equal(t, CanceledMessage, b.Status.Message)
	assert.Empty(t, tr.ActiveStatuses())
	assert.False(t, tr.HasActiveTools())
}

func TestTracker_Reset(t *testing.T) {
	var logs bytes.Buffer
	tr := newTestTracker(&logs)

	tr.Apply(delta("T", "APPEND", "x"))
	snap := tr.Snapshot()
	tr.Reset()

	assert.Equal(t, 0, tr.Snapshot().Len())
	assert.Equal(t, 1, snap.Len())
	assert.Empty(t, tr.Render())
}
