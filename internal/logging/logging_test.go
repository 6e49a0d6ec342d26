// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("debug", "json", &buf)
	require.NoError(t, err)

	l.Debug().Str("tool", "Brainstorming").Msg("implicit start")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "Brainstorming", entry["tool"])
	assert.Equal(t, "implicit start", entry["message"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", "json", &buf)
	require.NoError(t, err)

	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestNew_ConsoleWithoutTerminalHasNoColor(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "log.txt"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, isTerminal(f))
	assert.False(t, isTerminal(&bytes.Buffer{}))

	var buf bytes.Buffer
	l, err := New("info", "console", &buf)
	require.NoError(t, err)
	l.Info().Msg("plain")

	assert.Contains(t, buf.String(), "plain")
	assert.False(t, strings.Contains(buf.String(), "\x1b["), "unexpected escape codes: %q", buf.String())
}

func TestNew_Errors(t *testing.T) {
	_, err := New("loud", "json", nil)
	assert.Error(t, err)

	_, err = New("info", "xml", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSetAndGet(t *testing.T) {
	prev := Get()
	defer Set(prev)

	var buf bytes.Buffer
	Set(zerolog.New(&buf))
	l := Get()
	l.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
}

func TestOrDefault(t *testing.T) {
	nop := Nop()
	assert.Equal(t, zerolog.Disabled, OrDefault(&nop).GetLevel())
	assert.NotNil(t, OrDefault(nil))
}
