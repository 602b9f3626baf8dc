// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/auth"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/tool"
)

// NewBackendResolver builds the tool.BackendResolver used by every
// invocation closure: when the call context
// carries a bearer token, route to that token's AuthPool; otherwise fall
// back to currentDefault(), called fresh on every invocation so a config
// reload's new Source Pool Manager takes effect without rebuilding the
// resolver. authMgr may be nil when the deployment has no auth session
// endpoints enabled.
func NewBackendResolver(currentDefault func() tool.Backend, authMgr *auth.Manager) tool.BackendResolver {
	return func(ctx context.Context) (tool.Backend, error) {
		token, ok := TokenFromContext(ctx)
		if !ok || authMgr == nil {
			return currentDefault(), nil
		}
		if _, err := authMgr.Validate(token); err != nil {
			return nil, errs.Wrap(errs.KindUnauthorized, err, "validate bearer token")
		}
		backend, ok := authMgr.Backend(token)
		if !ok {
			return nil, errs.New(errs.KindUnauthorized, "no backend pool for session token")
		}
		return backend, nil
	}
}
