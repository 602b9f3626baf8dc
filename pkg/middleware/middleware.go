// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package middleware provides the HTTP-transport cross-cutting concerns
// that sit in front of the Tool Runtime Adapter and the auth endpoints:
// bearer-token propagation into the invocation context, security headers, and request logging.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/auth"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/logging"
)

type contextKey string

const tokenContextKey contextKey = "bearer-token"

// WithToken attaches token to ctx, for the invocation closure's
// BackendResolver to read back.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFromContext returns the bearer token attached to ctx, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenContextKey).(string)
	return v, ok && v != ""
}

// BearerAuth extracts the Authorization: Bearer token from each request
// and attaches it to the request's context, regardless of whether auth
// is enabled — the invocation closure's BackendResolver decides whether
// the absence of a token is acceptable.
func BearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := auth.BearerToken(r); token != "" {
			r = r.WithContext(WithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets a conservative baseline of response headers on
// every request.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// RequestLogging logs method, path, status, and duration for every
// request through logging.GetLogger().
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logging.GetLogger().Info("http request",
			"method", r.Method, "path", r.URL.Path,
			"status", sw.status, "duration_ms", time.Since(start).Milliseconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Chain composes middlewares left-to-right: Chain(a, b)(h) == a(b(h)).
func Chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
