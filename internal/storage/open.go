// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Engine names accepted by OpenEngine.
const (
	EngineFile   = "file"
	EngineSQLite = "sqlite"
	EnginePebble = "pebble"
	EngineMemory = "memory"
)

// Engines lists the supported engine names.
var Engines = []string{EngineFile, EngineSQLite, EnginePebble, EngineMemory}

// OpenEngine opens the named engine with its data under dir.
func OpenEngine(name, dir string) (Engine, error) {
	switch strings.ToLower(name) {
	case "", EngineFile:
		return NewFileStore(dir)
	case EngineSQLite:
		return NewSQLiteStore(filepath.Join(dir, "conversations.db"))
	case EnginePebble:
		return NewPebbleStore(filepath.Join(dir, "pebble"))
	case EngineMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage engine %q (want one of %s)", name, strings.Join(Engines, ", "))
	}
}
