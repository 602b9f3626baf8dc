// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/bus"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/logging"
)

// watcher watches the parent directory of every loaded file (which also
// catches files being added or removed) and, on any change in a watched
// directory, invalidates every cache entry and publishes a bus.Event
// carrying the changed path.
type watcher struct {
	fsw   *fsnotify.Watcher
	cache *cache
	pub   bus.Publisher
	done  chan struct{}
}

func newWatcher(c *cache, pub bus.Publisher) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{fsw: fsw, cache: c, pub: pub, done: make(chan struct{})}
	go w.run()
	return w, nil
}

// watch registers the directories containing paths. key is not recorded:
// a future fsnotify event in any watched directory invalidates the whole
// cache.
func (w *watcher) watch(key string, paths []string) {
	dirs := map[string]bool{}
	for _, p := range paths {
		dirs[filepath.Dir(p)] = true
	}
	for d := range dirs {
		if err := w.fsw.Add(d); err != nil {
			logging.GetLogger().Warn("config watcher: failed to watch directory", "dir", d, "error", err)
		}
	}
}

func (w *watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.cache.invalidateAll()
			if w.pub != nil {
				_ = w.pub.Publish(context.Background(), bus.Event{Topic: bus.ReloadTopic, Payload: evt.Name})
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Watcher errors are logged and demoted to warnings.
			logging.GetLogger().Warn("config watcher error", "error", err)
		}
	}
}

func (w *watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
