// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/config"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/pool"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/tool"
)

type fakeBackend struct {
	rows *pool.RowSet
	err  error
}

func (b *fakeBackend) Execute(ctx context.Context, source, stmt string, binds []interface{}) (*pool.RowSet, error) {
	return b.rows, b.err
}

func mustCompile(t *testing.T, name string, desc *config.ToolDescriptor) *tool.CompiledTool {
	t.Helper()
	ct, err := tool.Compile(name, desc, func(string) []string { return nil })
	require.NoError(t, err)
	return ct
}

func testCache(t *testing.T, backend tool.Backend) (*tool.RegistrationCache, tool.BackendResolver) {
	t.Helper()
	cache := tool.NewRegistrationCache()
	ct := mustCompile(t, "user_by_id", &config.ToolDescriptor{
		Source:      "main",
		Description: "fetch a user by id",
		Statement:   "SELECT id, name FROM users WHERE id = :id",
		Parameters: []*config.ToolParameterDescriptor{
			{Name: "id", Type: config.ParamInteger},
		},
	})
	cache.Rebuild([]*tool.CompiledTool{ct}, 0)
	return cache, func(context.Context) (tool.Backend, error) { return backend, nil }
}

func connect(t *testing.T, srv *Server) (*mcp.ClientSession, func()) {
	t.Helper()
	ctx := context.Background()
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := srv.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	return clientSession, func() {
		clientSession.Close()
		serverSession.Close()
	}
}

func TestAdapter_ListToolsReflectsCache(t *testing.T) {
	cache, resolve := testCache(t, &fakeBackend{})
	index := tool.BuildToolsetIndex(nil)
	srv := NewServer("db2i-mcp-server", "test", cache, index, resolve)

	clientSession, closeAll := connect(t, srv)
	defer closeAll()

	listed, err := clientSession.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, listed.Tools, 1)
	assert.Equal(t, "user_by_id", listed.Tools[0].Name)
}

func TestAdapter_CallToolSuccess(t *testing.T) {
	backend := &fakeBackend{rows: &pool.RowSet{
		Columns: []string{"id", "name"},
		Rows:    [][]interface{}{{1, "ada"}},
	}}
	cache, resolve := testCache(t, backend)
	index := tool.BuildToolsetIndex(nil)
	srv := NewServer("db2i-mcp-server", "test", cache, index, resolve)

	clientSession, closeAll := connect(t, srv)
	defer closeAll()

	args, _ := json.Marshal(map[string]interface{}{"id": 1})
	result, err := clientSession.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "user_by_id",
		Arguments: json.RawMessage(args),
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	_, ok := result.Content[0].(*mcp.TextContent)
	assert.True(t, ok)

	// The structured content crosses the transport as plain JSON, so the
	// client session sees a decoded map rather than the server's struct.
	structured, ok := result.StructuredContent.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, structured["success"])
	meta, ok := structured["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, meta["row_count"])
	assert.EqualValues(t, 1, meta["parameter_count"])
}

func TestAdapter_CallToolBackendError(t *testing.T) {
	backend := &fakeBackend{err: assert.AnError}
	cache, resolve := testCache(t, backend)
	index := tool.BuildToolsetIndex(nil)
	srv := NewServer("db2i-mcp-server", "test", cache, index, resolve)

	clientSession, closeAll := connect(t, srv)
	defer closeAll()

	args, _ := json.Marshal(map[string]interface{}{"id": 1})
	result, err := clientSession.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "user_by_id",
		Arguments: json.RawMessage(args),
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
