// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/pool"
)

// sourceExecutor is the subset of pool.SourceManager this package guards;
// pool.SourceManager satisfies it directly.
type sourceExecutor interface {
	Execute(ctx context.Context, source, stmt string, binds []interface{}) (*pool.RowSet, error)
}

// GuardedBackend wraps a pool.SourceManager with a per-source circuit
// breaker, so a tool invocation against a source with an open breaker
// fails fast instead of queuing behind a dead upstream.
type GuardedBackend struct {
	sources  sourceExecutor
	breakers *Manager
}

// NewGuardedBackend wraps sources with breakers.
func NewGuardedBackend(sources sourceExecutor, breakers *Manager) *GuardedBackend {
	return &GuardedBackend{sources: sources, breakers: breakers}
}

// Execute satisfies tool.Backend, running the query through source's
// circuit breaker.
func (b *GuardedBackend) Execute(ctx context.Context, source, stmt string, binds []interface{}) (*pool.RowSet, error) {
	var rs *pool.RowSet
	err := b.breakers.Execute(source, func() error {
		var execErr error
		rs, execErr = b.sources.Execute(ctx, source, stmt, binds)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}
