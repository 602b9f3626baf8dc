// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package logging provides a single process-wide slog.Logger, initialized
// once at startup and shared by every component instead of each one
// constructing its own.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	once   sync.Once
	mu     sync.RWMutex
	logger *slog.Logger
)

// Init configures the process-wide logger. Subsequent calls are no-ops;
// use ForTestsOnlyResetLogger to reconfigure within a test.
func Init(level slog.Level, w io.Writer) {
	once.Do(func() {
		setLogger(level, w)
	})
}

func setLogger(level slog.Level, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
}

// GetLogger returns the process-wide logger, initializing it with default
// settings (info level, stderr) on first use if Init was never called.
func GetLogger() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(slog.LevelInfo, os.Stderr)
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// ParseLevel maps a case-insensitive level name to a slog.Level, defaulting
// to Info and reporting whether the name was recognized.
func ParseLevel(name string) (slog.Level, bool) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, false
	}
	return lvl, true
}

// ForTestsOnlyResetLogger clears the initialized logger so a test can call
// Init again with a captured buffer. Not for production use.
func ForTestsOnlyResetLogger() {
	mu.Lock()
	defer mu.Unlock()
	logger = nil
	once = sync.Once{}
}
