// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package health implements the supplemented GET /healthz and GET
// /readyz endpoints:
// aggregating pool.SourceManager.Health across every registered source.
// /readyz additionally fails while the initial config load hasn't
// completed.
package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/alexliesenfeld/health"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/metrics"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/pool"
)

// Aggregator builds the liveness/readiness checkers over a fixed set of
// named sources.
type Aggregator struct {
	ready   atomic.Bool
	checker health.Checker
}

// NewAggregator constructs an Aggregator that probes sourceManager.Health
// for each of names on every /healthz request.
func NewAggregator(sourceManager *pool.SourceManager, names []string) *Aggregator {
	a := &Aggregator{}

	var opts []health.CheckerOption
	for _, name := range names {
		n := name
		opts = append(opts, health.WithCheck(health.Check{
			Name:    n,
			Timeout: 5 * time.Second,
			Check: func(ctx context.Context) error {
				_, err := sourceManager.Health(ctx, n)
				metrics.SetSourceHealth(n, err == nil)
				return err
			},
		}))
	}

	a.checker = health.NewChecker(opts...)
	return a
}

// MarkReady flips the readiness gate once the initial config load has
// completed.
func (a *Aggregator) MarkReady() { a.ready.Store(true) }

// LivenessHandler serves GET /healthz: the aggregate status of every
// registered source, regardless of readiness.
func (a *Aggregator) LivenessHandler() http.Handler {
	return health.NewHandler(a.checker)
}

// ReadinessHandler serves GET /readyz: fails with 503 until MarkReady has
// been called, then defers to the same aggregate check.
func (a *Aggregator) ReadinessHandler() http.Handler {
	inner := health.NewHandler(a.checker)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not ready"}`))
			return
		}
		inner.ServeHTTP(w, r)
	})
}
