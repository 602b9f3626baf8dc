// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker(t *testing.T) {
	t.Run("closed_state", func(t *testing.T) {
		cb := NewCircuitBreaker("main", Config{ConsecutiveFailures: 2})
		err := cb.Execute(func() error { return nil })
		require.NoError(t, err)
		require.Equal(t, StateClosed, cb.State())
	})

	t.Run("open_state", func(t *testing.T) {
		cb := NewCircuitBreaker("main", Config{ConsecutiveFailures: 2, OpenDuration: 10 * time.Second})

		_ = cb.Execute(func() error { return errors.New("error") })
		_ = cb.Execute(func() error { return errors.New("error") })

		require.Equal(t, StateOpen, cb.State())

		err := cb.Execute(func() error { return nil })
		require.Error(t, err)
		require.IsType(t, &CircuitBreakerOpenError{}, err)
	})

	t.Run("half_open_state", func(t *testing.T) {
		cb := NewCircuitBreaker("main", Config{ConsecutiveFailures: 2, OpenDuration: 10 * time.Millisecond})

		_ = cb.Execute(func() error { return errors.New("error") })
		_ = cb.Execute(func() error { return errors.New("error") })

		time.Sleep(15 * time.Millisecond)

		err := cb.Execute(func() error { return nil })
		require.NoError(t, err)
		require.Equal(t, StateClosed, cb.State())
	})

	t.Run("half_open_to_open_state", func(t *testing.T) {
		cb := NewCircuitBreaker("main", Config{
			ConsecutiveFailures: 2,
			OpenDuration:        10 * time.Millisecond,
			HalfOpenRequests:    1,
		})

		_ = cb.Execute(func() error { return errors.New("error") })
		_ = cb.Execute(func() error { return errors.New("error") })

		time.Sleep(15 * time.Millisecond)

		err := cb.Execute(func() error { return errors.New("error") })
		require.Error(t, err)
		require.Equal(t, StateOpen, cb.State())
	})
}

func TestManager_PerSourceBreakers(t *testing.T) {
	m := NewManager(Config{ConsecutiveFailures: 1, OpenDuration: time.Minute})

	err := m.Execute("a", func() error { return errors.New("boom") })
	require.Error(t, err)
	require.Equal(t, StateOpen, m.State("a"))
	require.Equal(t, StateClosed, m.State("b"))
}
