// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/config"
)

const fixtureYAML = `
sources:
  main:
    host: localhost
    user: tester
    password: secret
    driver: sqlite
    database: ":memory:"
tools:
  answer:
    source: main
    description: return the supplied id
    statement: "SELECT :id AS id"
    parameters:
      - name: id
        type: integer
        required: true
  constant:
    source: main
    description: return a constant
    statement: "SELECT 42 AS answer"
  hidden:
    source: main
    description: not registered under the fast toolset
    statement: "SELECT 1 AS one"
toolsets:
  fast:
    tools: [answer, constant]
  slow:
    tools: [hidden]
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o600))
	return path
}

func newTestApp(t *testing.T, toolsets []string) *App {
	t.Helper()
	a, err := New(context.Background(), Config{
		Specifiers:   []config.Specifier{{Kind: config.KindFile, Path: writeFixture(t), Required: true}},
		ToolsetNames: toolsets,
		MergeOptions: config.DefaultMergeOptions(),
		ServerName:   "db2i-mcp-server",
		ServerVer:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

func connect(t *testing.T, a *App) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := a.MCPServer().MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		clientSession.Close()
		serverSession.Close()
	})
	return clientSession
}

func TestApp_CompilesAllToolsWithoutFilter(t *testing.T) {
	a := newTestApp(t, nil)
	assert.Equal(t, 3, a.RegistrationCache().Stats().ToolCount)
	assert.Equal(t, 2, a.RegistrationCache().Stats().ToolsetCount)
}

func TestApp_ToolsetFilterLimitsRegistration(t *testing.T) {
	a := newTestApp(t, []string{"fast"})

	_, ok := a.RegistrationCache().Get("answer")
	assert.True(t, ok)
	_, ok = a.RegistrationCache().Get("constant")
	assert.True(t, ok)
	_, ok = a.RegistrationCache().Get("hidden")
	assert.False(t, ok)

	session := connect(t, a)
	listed, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)
	names := make([]string, 0, len(listed.Tools))
	for _, tl := range listed.Tools {
		names = append(names, tl.Name)
	}
	assert.ElementsMatch(t, []string{"answer", "constant"}, names)

	_, err = session.CallTool(context.Background(), &mcp.CallToolParams{Name: "hidden"})
	assert.Error(t, err)
}

func TestApp_InvocationRoundTrip(t *testing.T) {
	a := newTestApp(t, nil)
	session := connect(t, a)

	args, err := json.Marshal(map[string]interface{}{"id": 7})
	require.NoError(t, err)
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "answer",
		Arguments: json.RawMessage(args),
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	structured, ok := result.StructuredContent.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, structured["success"])
	meta, ok := structured["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, meta["parameter_count"])
	assert.EqualValues(t, 1, meta["row_count"])
}

func TestApp_MissingConfigFails(t *testing.T) {
	_, err := New(context.Background(), Config{
		Specifiers:   []config.Specifier{{Kind: config.KindFile, Path: "/does/not/exist.yaml", Required: true}},
		MergeOptions: config.DefaultMergeOptions(),
	})
	assert.Error(t, err)
}
