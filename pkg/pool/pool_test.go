package pool

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	id        int
	isHealthy bool
	isClosed  bool
	closeErr  error
}

func (c *mockClient) IsHealthy() bool { return c.isHealthy }
func (c *mockClient) Close() error {
	c.isClosed = true
	return c.closeErr
}

var clientIDCounter int32

func newMockClientFactory(healthy bool) Factory[*mockClient] {
	return func(ctx context.Context) (*mockClient, error) {
		id := atomic.AddInt32(&clientIDCounter, 1)
		return &mockClient{id: int(id), isHealthy: healthy}, nil
	}
}

func TestPool_New(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		p, err := New(newMockClientFactory(true), 1, 5, 100)
		require.NoError(t, err)
		assert.NotNil(t, p)
		assert.Equal(t, 1, p.Len())
		p.Close()
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := New(newMockClientFactory(true), -1, 5, 100)
		assert.Error(t, err)
	})
}

func TestPool_GetPut(t *testing.T) {
	p, err := New(newMockClientFactory(true), 1, 2, 100)
	require.NoError(t, err)
	defer p.Close()

	c1, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, c1)
	assert.Equal(t, 0, p.Len())

	p.Put(c1)
	assert.Equal(t, 1, p.Len())

	c2, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestPool_Get_Unhealthy(t *testing.T) {
	var createdCount int32
	factory := func(ctx context.Context) (*mockClient, error) {
		count := atomic.AddInt32(&createdCount, 1)
		return &mockClient{isHealthy: count > 1}, nil
	}

	p, err := New(factory, 1, 2, 100)
	require.NoError(t, err)
	defer p.Close()

	c, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.True(t, c.IsHealthy())
}

func TestPool_Put_Unhealthy(t *testing.T) {
	p, err := New(newMockClientFactory(true), 0, 2, 100)
	require.NoError(t, err)
	defer p.Close()

	c, err := p.Get(context.Background())
	require.NoError(t, err)

	c.isHealthy = false
	p.Put(c)

	assert.Equal(t, 0, p.Len())
	assert.True(t, c.isClosed)
}

func TestPool_PutUnhealthyClientReleasesSemaphore(t *testing.T) {
	p, err := New(newMockClientFactory(true), 0, 1, 100)
	require.NoError(t, err)
	defer p.Close()

	c, err := p.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c)

	c.isHealthy = false
	p.Put(c)

	c2, err := p.Get(context.Background())
	require.NoError(t, err, "should be able to get a new client after returning an unhealthy one")
	assert.NotNil(t, c2)
}

func TestPool_Full(t *testing.T) {
	p, err := New(newMockClientFactory(true), 0, 1, 100)
	require.NoError(t, err)
	defer p.Close()

	c1, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, c1)

	_, err = p.Get(context.Background())
	assert.Equal(t, ErrPoolFull, err)
}

func TestPool_Close(t *testing.T) {
	client := &mockClient{isHealthy: true}
	factory := func(ctx context.Context) (*mockClient, error) {
		return client, nil
	}

	p, err := New(factory, 1, 1, 100)
	require.NoError(t, err)
	p.Close()

	assert.True(t, client.isClosed)
}

func TestManager(t *testing.T) {
	m := NewManager()
	p, err := New(newMockClientFactory(true), 1, 5, 100)
	require.NoError(t, err)

	m.Register("test_pool", p)

	retrieved, ok := Get[*mockClient](m, "test_pool")
	require.True(t, ok)
	assert.Equal(t, p, retrieved)

	_, ok = Get[*mockClient](m, "nonexistent_pool")
	assert.False(t, ok)

	m.CloseAll()
}

type simpleMockPool struct {
	closed bool
}

func (p *simpleMockPool) Close()   { p.closed = true }
func (p *simpleMockPool) Len() int { return 0 }

func TestManager_RegisterOverwriteClosesOldPool(t *testing.T) {
	m := NewManager()
	pool1 := &simpleMockPool{}
	pool2 := &simpleMockPool{}

	m.Register("test_pool", pool1)
	m.Register("test_pool", pool2)

	assert.True(t, pool1.closed, "expected old pool to be closed upon re-registration")
	assert.False(t, pool2.closed, "expected new pool to not be closed")
}
