// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package redis implements bus.Bus over Redis pub/sub, for deployments
// running more than one server instance that want every instance's config
// watcher to invalidate the others' caches on a change.
package redis

import (
	"context"
	"encoding/json"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/bus"
	goredis "github.com/redis/go-redis/v9"
)

// Bus publishes/subscribes through a shared Redis channel namespace.
type Bus struct {
	client *goredis.Client
	prefix string
}

// New wraps an existing *goredis.Client; prefix namespaces channel names so
// multiple unrelated deployments can share one Redis instance.
func New(client *goredis.Client, prefix string) *Bus {
	return &Bus{client: client, prefix: prefix}
}

func (b *Bus) channel(topic string) string {
	return b.prefix + ":" + topic
}

// Publish serializes evt and publishes it on the topic's channel.
func (b *Bus) Publish(ctx context.Context, evt bus.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel(evt.Topic), data).Err()
}

// Subscribe returns a channel fed by a background goroutine that decodes
// messages from the Redis subscription until ctx is canceled or Close is
// called.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan bus.Event, error) {
	sub := b.client.Subscribe(ctx, b.channel(topic))
	if _, err := sub.Receive(ctx); err != nil {
		return nil, err
	}

	out := make(chan bus.Event, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt bus.Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					continue
				}
				select {
				case out <- evt:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Close closes the underlying Redis client.
func (b *Bus) Close() error {
	return b.client.Close()
}
