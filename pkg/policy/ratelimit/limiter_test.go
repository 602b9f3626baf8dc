// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryLimiter(t *testing.T) {
	limiter := NewInMemoryLimiter(10, 1)

	assert.True(t, limiter.Allow(), "first request should be allowed")

	for i := 0; i < 10; i++ {
		limiter.Allow()
	}

	assert.False(t, limiter.Allow(), "request after exhausting burst should be denied")

	time.Sleep(150 * time.Millisecond)

	assert.True(t, limiter.Allow(), "request after refill should be allowed")
}
