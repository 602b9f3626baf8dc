// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package tool implements the Tool Compiler, Tool Registration Cache,
// and Toolset Index: turning declarative ToolDescriptors into
// CompiledTools with an invocation closure, and keeping the live,
// atomically-swapped set the dispatch runtime serves from.
package tool

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/config"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/pool"
)

// Backend is what an invocation closure executes SQL against: either the
// default Source Pool Manager or a per-token AuthPool.
// pool.SourceManager satisfies this directly.
type Backend interface {
	Execute(ctx context.Context, source, stmt string, binds []interface{}) (*pool.RowSet, error)
}

// BackendResolver picks the Backend an invocation should route to: when
// ctx carries a bearer token, the invocation routes to that token's
// AuthPool instead of the default Source Pool Manager.
type BackendResolver func(ctx context.Context) (Backend, error)

// Annotations is the assembled per-tool metadata surfaced to the
// dispatch runtime.
type Annotations struct {
	Title           string
	Description     string
	Domain          string
	Category        string
	ReadOnlyHint    bool
	DestructiveHint bool
	IdempotentHint  bool
	OpenWorldHint   bool
	Toolsets        []string
	CustomMetadata  map[string]string
}

// InvocationMetadata is the execution metadata attached to a
// ToolInvocationResult.
type InvocationMetadata struct {
	ExecutionTimeMS int64    `json:"execution_time_ms"`
	RowCount        int      `json:"row_count"`
	ColumnTypes     []string `json:"column_types,omitempty"`
	AffectedRows    int64    `json:"affected_rows,omitempty"`
	BindingMode     string   `json:"binding_mode,omitempty"`
	ParameterCount  int      `json:"parameter_count"`
}

// InvocationResult is the fixed output schema of every tool invocation.
type InvocationResult struct {
	Success  bool                     `json:"success"`
	Data     []map[string]interface{} `json:"data"`
	Columns  []string                 `json:"columns,omitempty"`
	Error    string                   `json:"error,omitempty"`
	Metadata InvocationMetadata       `json:"metadata"`
}

// CompiledTool is the output of the Tool Compiler.
type CompiledTool struct {
	Name        string
	Source      string
	Statement   string
	Parameters  []*config.ToolParameterDescriptor
	InputSchema *jsonschema.Schema
	Annotations Annotations
	Security    *config.ToolSecurityPolicy

	invoke func(ctx context.Context, args map[string]interface{}, resolve BackendResolver) (*InvocationResult, error)
}

// Invoke runs the tool's invocation closure.
func (t *CompiledTool) Invoke(ctx context.Context, args map[string]interface{}, resolve BackendResolver) (*InvocationResult, error) {
	return t.invoke(ctx, args, resolve)
}
