// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// Watcher reloads the config file when it changes on disk and delivers
// each successfully reloaded Config on Updates. Invalid intermediate
// states (mid-save, syntax errors) are logged and skipped.
type Watcher struct {
	path     string
	fw       *fsnotify.Watcher
	updates  chan *Config
	debounce time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWatcher watches the config file at path. Editors replace files by
// rename, so the parent directory is watched rather than the file itself.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     path,
		fw:       fw,
		updates:  make(chan *Config, 1),
		debounce: 200 * time.Millisecond,
		ctx:      ctx,
		cancel:   cancel,
	}
	go w.run()
	return w, nil
}

// Updates delivers each reloaded configuration.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.fw.Close()
}

func (w *Watcher) run() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: editors fire several events per save.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("config: watch error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFromPath(w.path)
	if err != nil {
		log.Printf("config: reload skipped: %v", err)
		return
	}

	// Drop a stale pending update so the channel always holds the newest.
	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- cfg:
	case <-w.ctx.Done():
	}
}
