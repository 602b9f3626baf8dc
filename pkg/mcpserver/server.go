// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package mcpserver

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/tool"
)

// Transport selects the dispatch transport.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// Server owns the underlying mcp.Server and the Adapter that keeps its
// tool set synchronized with the Tool Registration Cache.
type Server struct {
	name, version string
	adapter       *Adapter
	mcp           *mcp.Server
}

// NewServer builds a Server whose mcp.Server already carries every tool
// in the cache; RegisterTools re-syncs it after a reload.
func NewServer(name, version string, cache *tool.RegistrationCache, index *tool.ToolsetIndex, resolve tool.BackendResolver) *Server {
	s := &Server{
		name:    name,
		version: version,
		adapter: NewAdapter(cache, index, resolve),
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	s.adapter.SyncTools(s.mcp)
	return s
}

// RegisterTools reconciles the live mcp.Server with the Tool Registration
// Cache, adding newly compiled tools and deregistering ones a reload
// dropped.
func (s *Server) RegisterTools() {
	s.adapter.SyncTools(s.mcp)
}

// MCP returns the underlying SDK server, e.g. for tests that connect an
// in-memory transport directly.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// RunStdio serves the dispatch protocol over stdio until ctx is canceled
// or the client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns an http.Handler serving the streamable-HTTP
// transport, for mounting alongside the auth/health/metrics endpoints.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}
