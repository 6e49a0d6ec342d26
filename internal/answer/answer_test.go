// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package answer

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/it-at-m/mucgpt-sub002/internal/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func intPtr(n int) *int { return &n }

// =============================================================================
// ASSEMBLER TESTS
// =============================================================================

func TestAssembler_ScenarioA(t *testing.T) {
	a := NewAssembler(nil)

	a.Apply(stream.ContentDelta{Text: "Hel"})
	a.Apply(stream.ContentDelta{Text: "lo"})
	a.Apply(stream.Stop{Reason: "stop"})

	res := a.Finish()
	assert.Equal(t, "Hello", res.Text)
	assert.True(t, res.Stopped)
}

func TestAssembler_ScenarioE_NothingAfterStop(t *testing.T) {
	a := NewAssembler(nil)

	a.Apply(stream.ContentDelta{Text: "Hello"})
	a.Apply(stream.Stop{Reason: "stop"})
	before := a.Snapshot()

	assert.False(t, a.Apply(stream.Done{}))
	assert.False(t, a.Apply(stream.ContentDelta{Text: " late"}))
	assert.Equal(t, before.Text, a.Finish().Text)
}

func TestAssembler_ScenarioC_UsageAdditive(t *testing.T) {
	a := NewAssembler(nil)

	a.Apply(stream.UsageDelta{PromptTokens: intPtr(5)})
	a.Apply(stream.UsageDelta{CompletionTokens: intPtr(3)})
	a.Apply(stream.Stop{})
	a.Apply(stream.UsageDelta{CompletionTokens: intPtr(7)})

	res := a.Finish()
	assert.Equal(t, 5, res.PromptTokens)
	assert.Equal(t, 10, res.CompletionTokens)
}

func TestAssembler_Reasoning(t *testing.T) {
	a := NewAssembler(nil)

	a.Apply(stream.ReasoningDelta{Text: "think"})
	a.Apply(stream.ContentDelta{Text: "say"})

	res := a.Snapshot()
	assert.Equal(t, "think", res.ReasoningText)
	assert.Equal(t, "say", res.Text)
}

func TestAssembler_IgnoresAfterFinish(t *testing.T) {
	a := NewAssembler(nil)
	a.Apply(stream.ContentDelta{Text: "x"})
	a.Finish()

	assert.False(t, a.Apply(stream.ContentDelta{Text: "y"}))
	assert.Equal(t, "x", a.Snapshot().Text)
}

func TestAssembler_TextIndependentOfDebounce(t *testing.T) {
	deltas := []string{"Gr", "ü", "ße", " ", "aus", " München", " 👋", "", "!"}
	want := strings.Join(deltas, "")

	for _, debounce := range []time.Duration{time.Microsecond, time.Millisecond, 20 * time.Millisecond, time.Hour} {
		t.Run(debounce.String(), func(t *testing.T) {
			var mu sync.Mutex
			var seen []string

			var a *Assembler
			n := NewNotifier(func() {
				mu.Lock()
				defer mu.Unlock()
				seen = append(seen, a.Snapshot().Text)
			}, WithDebounce(debounce))
			a = NewAssembler(n)

			for i, d := range deltas {
				a.Apply(stream.ContentDelta{Text: d})
				if i%3 == 0 {
					time.Sleep(time.Millisecond)
				}
			}
			res := a.Finish()

			assert.Equal(t, want, res.Text)
			mu.Lock()
			defer mu.Unlock()
			require.NotEmpty(t, seen)
			assert.Equal(t, want, seen[len(seen)-1], "final flush must carry the full text")
		})
	}
}

// =============================================================================
// NOTIFIER TESTS
// =============================================================================

func TestNotifier_TrailingEdge(t *testing.T) {
	var calls atomic.Int32
	n := NewNotifier(func() { calls.Add(1) }, WithDebounce(20*time.Millisecond))
	defer n.Stop()

	for i := 0; i < 10; i++ {
		n.Trigger()
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNotifier_FlushBypassesTimer(t *testing.T) {
	var calls atomic.Int32
	n := NewNotifier(func() { calls.Add(1) }, WithDebounce(time.Hour))

	n.Trigger()
	assert.Equal(t, int32(0), calls.Load())

	n.Flush()
	assert.Equal(t, int32(1), calls.Load())

	n.Trigger()
	assert.Equal(t, int32(1), calls.Load())
}

func TestNotifier_StopDropsPending(t *testing.T) {
	var calls atomic.Int32
	n := NewNotifier(func() { calls.Add(1) }, WithDebounce(5*time.Millisecond))

	n.Trigger()
	n.Stop()
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, int32(0), calls.Load())
}

func TestNotifier_MaxWait(t *testing.T) {
	var calls atomic.Int32
	n := NewNotifier(func() { calls.Add(1) }, WithDebounce(time.Hour), WithMaxWait(5*time.Millisecond))
	defer n.Stop()

	n.Trigger()
	assert.Equal(t, int32(1), calls.Load(), "first trigger fires immediately")

	n.Trigger()
	assert.Equal(t, int32(1), calls.Load())

	time.Sleep(10 * time.Millisecond)
	n.Trigger()
	assert.Equal(t, int32(2), calls.Load())
}

func TestNotifier_NilIsNoop(t *testing.T) {
	var n *Notifier
	n.Trigger()
	n.Flush()
	n.Stop()
}
