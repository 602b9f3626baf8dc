// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package memory implements an in-process bus.Bus: the default reload
// notification path for a single-instance server.
package memory

import (
	"context"
	"sync"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/bus"
)

// Bus fans out events to all subscribers of a topic via buffered channels.
// A slow subscriber drops events rather than blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan bus.Event
}

// New returns an empty, ready-to-use Bus.
func New() *Bus {
	return &Bus{subs: map[string][]chan bus.Event{}}
}

// Publish delivers evt to every current subscriber of evt.Topic.
func (b *Bus) Publish(_ context.Context, evt bus.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[evt.Topic] {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel that receives future events on topic.
func (b *Bus) Subscribe(_ context.Context, topic string) (<-chan bus.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan bus.Event, 16)
	b.subs[topic] = append(b.subs[topic], ch)
	return ch, nil
}

// Close releases all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subs = map[string][]chan bus.Event{}
	return nil
}
