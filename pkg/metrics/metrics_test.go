// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ExposesRecordedMetrics(t *testing.T) {
	RecordInvocation("user_by_id", true, 0.01)
	RecordAuthIssue(false)
	SetSourceHealth("main", true)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "db2i_mcp_tool_invocations_total")
	assert.Contains(t, body, "db2i_mcp_auth_sessions_issued_total")
	assert.Contains(t, body, "db2i_mcp_source_pool_healthy")
}
