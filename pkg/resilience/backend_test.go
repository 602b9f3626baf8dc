// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/pool"
)

type stubExecutor struct {
	err   error
	calls int
}

func (s *stubExecutor) Execute(ctx context.Context, source, stmt string, binds []interface{}) (*pool.RowSet, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &pool.RowSet{Columns: []string{"n"}, Rows: [][]interface{}{{1}}}, nil
}

func TestGuardedBackend_TripsAfterConsecutiveFailures(t *testing.T) {
	stub := &stubExecutor{err: errors.New("boom")}
	backend := NewGuardedBackend(stub, NewManager(Config{ConsecutiveFailures: 2, OpenDuration: time.Hour}))

	_, err := backend.Execute(context.Background(), "main", "SELECT 1", nil)
	assert.Error(t, err)
	_, err = backend.Execute(context.Background(), "main", "SELECT 1", nil)
	assert.Error(t, err)

	calls := stub.calls
	_, err = backend.Execute(context.Background(), "main", "SELECT 1", nil)
	var openErr *CircuitBreakerOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, calls, stub.calls, "breaker should short-circuit without calling the executor")
}

func TestGuardedBackend_PassesThroughSuccess(t *testing.T) {
	stub := &stubExecutor{}
	backend := NewGuardedBackend(stub, NewManager(Config{}))

	rs, err := backend.Execute(context.Background(), "main", "SELECT 1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, rs.Columns)
}
