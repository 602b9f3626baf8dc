// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver presents compiled tools to the
// modelcontextprotocol/go-sdk dispatch runtime, wrapping each invocation
// with a request id, otel span propagation, timing, and a fixed
// success/failure envelope.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/logging"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/metrics"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/tool"
)

var tracer = otel.Tracer("github.com/ibmi-tools/db2i-mcp-server/pkg/mcpserver")

type requestIDKey struct{}

// ContextWithRequestID attaches id to ctx; RequestIDFromContext reads it
// back, e.g. to populate a child request's "parent request id".
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id attached to ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey{}).(string)
	return v, ok
}

// Adapter registers every CompiledTool in cache against an mcp.Server.
//
// registered tracks the tool names live on the mcp.Server as of the last
// sync, so SyncTools can tell which ones a reload dropped.
type Adapter struct {
	cache   *tool.RegistrationCache
	index   *tool.ToolsetIndex
	resolve tool.BackendResolver

	mu         sync.Mutex
	registered map[string]bool
}

// NewAdapter builds an Adapter over cache, using resolve to pick the
// Backend for each invocation.
func NewAdapter(cache *tool.RegistrationCache, index *tool.ToolsetIndex, resolve tool.BackendResolver) *Adapter {
	return &Adapter{cache: cache, index: index, resolve: resolve, registered: map[string]bool{}}
}

// SyncTools reconciles srv against the current RegistrationCache: every
// cached tool is (re-)added, and any tool name registered by a previous
// call but absent from the current cache is deregistered via the SDK's
// RemoveTools, so a tool dropped from config stops being dispatchable
// instead of continuing to serve a stale closure.
func (a *Adapter) SyncTools(srv *mcp.Server) {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := make(map[string]bool, len(a.registered))
	for _, ct := range a.cache.List() {
		srv.AddTool(a.mcpTool(ct), a.handlerFor(ct))
		next[ct.Name] = true
	}

	var removed []string
	for name := range a.registered {
		if !next[name] {
			removed = append(removed, name)
		}
	}
	if len(removed) > 0 {
		srv.RemoveTools(removed...)
	}
	a.registered = next
}

func (a *Adapter) mcpTool(ct *tool.CompiledTool) *mcp.Tool {
	destructive := ct.Annotations.DestructiveHint
	openWorld := ct.Annotations.OpenWorldHint
	return &mcp.Tool{
		Name:        ct.Name,
		Description: ct.Annotations.Description,
		InputSchema: ct.InputSchema,
		Annotations: &mcp.ToolAnnotations{
			Title:           ct.Annotations.Title,
			ReadOnlyHint:    ct.Annotations.ReadOnlyHint,
			DestructiveHint: &destructive,
			IdempotentHint:  ct.Annotations.IdempotentHint,
			OpenWorldHint:   &openWorld,
		},
	}
}

// handlerFor builds the per-tool dispatch handler: a request id and
// timing wrap around tool.CompiledTool.Invoke, translating its
// InvocationResult into the MCP content/structured-content envelope.
func (a *Adapter) handlerFor(ct *tool.CompiledTool) mcp.ToolHandler {
	name := ct.Name
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestID := uuid.NewString()
		ctx = ContextWithRequestID(ctx, requestID)

		ctx, span := tracer.Start(ctx, "tool.invoke", trace.WithAttributes(
			attribute.String("tool", name),
			attribute.String("request_id", requestID),
		))
		defer span.End()

		log := logging.GetLogger().With("tool", name, "request_id", requestID)

		args := map[string]interface{}{}
		if req != nil && req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return a.errorResult(err, errs.KindValidation, span, log), nil
			}
		}

		start := time.Now()
		result, err := ct.Invoke(ctx, args, a.resolve)
		elapsed := time.Since(start)

		if err != nil {
			metrics.RecordInvocation(name, false, elapsed.Seconds())
			return a.errorResult(err, errs.KindOf(err), span, log), nil
		}

		metrics.RecordInvocation(name, result.Success, elapsed.Seconds())
		if !result.Success {
			span.SetStatus(codes.Error, result.Error)
			log.Warn("tool invocation failed", "error", result.Error, "duration_ms", elapsed.Milliseconds())
			return &mcp.CallToolResult{
				IsError:           true,
				Content:           []mcp.Content{&mcp.TextContent{Text: tool.FormatMarkdownTable(result)}},
				StructuredContent: result,
			}, nil
		}

		log.Info("tool invocation succeeded", "duration_ms", elapsed.Milliseconds(), "row_count", result.Metadata.RowCount)
		return &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: tool.FormatMarkdownTable(result)}},
			StructuredContent: result,
		}, nil
	}
}

func (a *Adapter) errorResult(err error, kind errs.Kind, span trace.Span, log *slog.Logger) *mcp.CallToolResult {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error("tool invocation error", "error", err, "kind", string(kind))

	result := &tool.InvocationResult{
		Success: false,
		Error:   err.Error(),
	}
	return &mcp.CallToolResult{
		IsError:           true,
		Content:           []mcp.Content{&mcp.TextContent{Text: "error: " + string(kind) + ": " + err.Error()}},
		StructuredContent: result,
	}
}
