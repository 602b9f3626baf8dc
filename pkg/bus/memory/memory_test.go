package memory

import (
	"context"
	"testing"
	"time"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	ch, err := b.Subscribe(context.Background(), bus.ReloadTopic)
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), bus.Event{Topic: bus.ReloadTopic, Payload: "key-1"}))

	select {
	case evt := <-ch:
		assert.Equal(t, "key-1", evt.Payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_PublishWithNoSubscribersDoesNotBlock(t *testing.T) {
	b := New()
	defer b.Close()
	assert.NoError(t, b.Publish(context.Background(), bus.Event{Topic: "nobody-listens"}))
}
