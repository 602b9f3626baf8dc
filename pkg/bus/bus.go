// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package bus defines the narrow event-notification interface the config
// watcher uses to announce cache invalidation without
// coupling it to a specific transport. pkg/bus/memory is the default,
// single-process implementation; pkg/bus/redis is an optional
// implementation for multi-instance deployments that want a shared
// invalidation signal.
package bus

import "context"

// Event carries a topic and an opaque payload (the path of the changed
// file, for the config-reload topic).
type Event struct {
	Topic   string
	Payload string
}

// ReloadTopic is the topic the config watcher publishes to.
const ReloadTopic = "config.reload"

// Publisher publishes events to subscribers. Publish must not block on a
// slow or absent subscriber.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Subscriber delivers events published to a topic to a channel the caller
// owns; Close stops delivery and releases resources.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan Event, error)
	Close() error
}

// Bus is both a Publisher and a Subscriber.
type Bus interface {
	Publisher
	Subscriber
}
