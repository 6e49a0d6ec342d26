// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce is the quiet period before Watch reports a change.
const DefaultWatchDebounce = 250 * time.Millisecond

// Watch calls onChange whenever conversation files in BaseDir are created,
// written, renamed or removed, for example by another mucgpt process.
// Bursts of events are coalesced. Watch blocks until ctx is done.
func (s *FileStore) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.BaseDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.BaseDir, err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isConversationFile(filepath.Base(event.Name)) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, onChange)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Str("dir", s.BaseDir).Msg("Conversation watcher error")
		}
	}
}
