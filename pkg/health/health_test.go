// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/pool"
)

func TestAggregator_ReadinessGate(t *testing.T) {
	sm := pool.NewSourceManager(nil)
	a := NewAggregator(sm, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	a.ReadinessHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	a.MarkReady()

	rec2 := httptest.NewRecorder()
	a.ReadinessHandler().ServeHTTP(rec2, req)
	assert.NotEqual(t, http.StatusServiceUnavailable, rec2.Code)
}

func TestAggregator_LivenessServesWithNoSources(t *testing.T) {
	sm := pool.NewSourceManager(nil)
	a := NewAggregator(sm, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	a.LivenessHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
