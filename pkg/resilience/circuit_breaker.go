// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package resilience wraps the Source Pool Manager's Execute with a
// circuit breaker so a source whose queries keep failing stops accepting
// new work once the breaker opens instead of queuing behind a dead
// upstream.
package resilience

import (
	"fmt"
	"sync"
	"time"
)

// State is a circuit breaker's current state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreakerOpenError is returned by Execute while the breaker is open.
type CircuitBreakerOpenError struct {
	Source string
}

func (e *CircuitBreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for source %q", e.Source)
}

// Config configures a CircuitBreaker's trip thresholds.
type Config struct {
	// ConsecutiveFailures is the number of consecutive failures that
	// trips the breaker from closed to open.
	ConsecutiveFailures int32
	// OpenDuration is how long the breaker stays open before allowing a
	// half-open probe.
	OpenDuration time.Duration
	// HalfOpenRequests is the number of successful half-open probes
	// required to close the breaker again.
	HalfOpenRequests int32
}

func (c Config) consecutiveFailures() int32 {
	if c.ConsecutiveFailures <= 0 {
		return 5
	}
	return c.ConsecutiveFailures
}

func (c Config) openDuration() time.Duration {
	if c.OpenDuration <= 0 {
		return 30 * time.Second
	}
	return c.OpenDuration
}

func (c Config) halfOpenRequests() int32 {
	if c.HalfOpenRequests <= 0 {
		return 1
	}
	return c.HalfOpenRequests
}

// CircuitBreaker is a per-source failure breaker (closed -> open ->
// half-open -> closed).
type CircuitBreaker struct {
	source string
	cfg    Config

	mu               sync.Mutex
	state           State
	failures        int32
	halfOpenSuccess int32
	openedAt        time.Time
}

// NewCircuitBreaker constructs a breaker for source.
func NewCircuitBreaker(source string, cfg Config) *CircuitBreaker {
	return &CircuitBreaker{source: source, cfg: cfg, state: StateClosed}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs fn, guarded by the breaker. While open, fn is not called
// and a *CircuitBreakerOpenError is returned immediately.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return &CircuitBreakerOpenError{Source: cb.source}
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.openedAt) < cb.cfg.openDuration() {
			return false
		}
		cb.state = StateHalfOpen
		cb.halfOpenSuccess = 0
	}
	return true
}

func (cb *CircuitBreaker) onFailure() {
	switch cb.state {
	case StateHalfOpen:
		cb.trip()
	default:
		cb.failures++
		if cb.failures >= cb.cfg.consecutiveFailures() {
			cb.trip()
		}
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateHalfOpen:
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.cfg.halfOpenRequests() {
			cb.state = StateClosed
			cb.failures = 0
		}
	default:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.failures = 0
}

// Manager keeps one CircuitBreaker per named source.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewManager constructs a Manager applying cfg to every source's breaker.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, breakers: map[string]*CircuitBreaker{}}
}

// Execute runs fn through source's breaker, creating it on first use.
func (m *Manager) Execute(source string, fn func() error) error {
	return m.breakerFor(source).Execute(fn)
}

func (m *Manager) breakerFor(source string) *CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	cb, ok := m.breakers[source]
	if !ok {
		cb = NewCircuitBreaker(source, m.cfg)
		m.breakers[source] = cb
	}
	return cb
}

// State returns the breaker state for source, StateClosed if unseen.
func (m *Manager) State(source string) State {
	return m.breakerFor(source).State()
}
