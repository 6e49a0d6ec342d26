// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// ErrUnsupportedFormat is returned by New for an unknown log format.
var ErrUnsupportedFormat = errors.New("unsupported log format")

var (
	globalLogger zerolog.Logger
	globalMu     sync.RWMutex
	once         sync.Once
)

// Get returns the process logger. Until Set is called it writes
// warnings and above to stderr in console format.
func Get() zerolog.Logger {
	once.Do(func() {
		l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger().Level(zerolog.WarnLevel)
		globalMu.Lock()
		globalLogger = l
		globalMu.Unlock()
	})
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Set replaces the process logger.
func Set(l zerolog.Logger) {
	once.Do(func() {})
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// New builds a logger for the given level and format ("console" or "json").
// A nil writer means stderr.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Logger{}, err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if w == nil {
		w = os.Stderr
	}

	var l zerolog.Logger
	switch strings.ToLower(format) {
	case "json":
		l = zerolog.New(w).With().Timestamp().Logger()
	case "", "console":
		l = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !isTerminal(w)}).
			With().Timestamp().Logger()
	default:
		return zerolog.Logger{}, ErrUnsupportedFormat
	}
	return l.Level(lvl), nil
}

// Nop returns a logger that discards everything. Used as a test default.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// OrDefault returns l unless it is the zero logger, in which case the
// process logger is returned.
func OrDefault(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return Get()
	}
	return *l
}

// isTerminal reports whether w is a terminal, which enables colored output.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
