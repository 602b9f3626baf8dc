// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package app wires the full request path (Config Loader, Toolset Index,
// Tool Compiler, Tool Registration Cache, Tool Runtime Adapter) plus the
// ambient HTTP surface (auth, health, metrics) into a single runnable
// process.
package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/auth"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/bus"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/bus/memory"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/config"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/health"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/logging"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/mcpserver"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/metrics"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/middleware"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/pool"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/resilience"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/tool"
)

// AuthConfig configures the optional Auth Session Manager HTTP surface
//. A zero-value AuthConfig leaves auth disabled.
type AuthConfig struct {
	Enabled               bool
	AllowHTTP             bool
	KeyID                 string
	PrivateKeyPath        string
	MaxConcurrentSessions int
	CleanupInterval       time.Duration
}

// Config configures an App instance.
type Config struct {
	Specifiers   []config.Specifier
	ToolsetNames []string
	MergeOptions config.MergeOptions
	ServerName   string
	ServerVer    string
	Auth         AuthConfig
}

// App is the fully wired server process.
//
// reload() is the single writer of sources/breakers/backend/index/
// aggregator; it runs synchronously once from New and thereafter from the
// watchReloads goroutine. Request-handling goroutines read those fields
// concurrently through the accessor methods below, so every access goes
// through mu.
type App struct {
	cfg Config

	loader  *config.Loader
	busImpl *memory.Bus

	mu         sync.RWMutex
	sources    *pool.SourceManager
	breakers   *resilience.Manager
	backend    tool.Backend
	index      *tool.ToolsetIndex
	aggregator *health.Aggregator

	authMgr *auth.Manager

	cache *tool.RegistrationCache
	mcp   *mcpserver.Server

	reloadCancel context.CancelFunc
}

// New constructs an App, performing the initial config load and
// compiling every tool selected by cfg.ToolsetNames (all tools when empty).
func New(ctx context.Context, cfg Config) (*App, error) {
	b := memory.New()

	loader, err := config.NewLoader(config.WithPublisher(b))
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, loader: loader, busImpl: b}

	if err := a.reload(); err != nil {
		loader.Close()
		return nil, err
	}

	if cfg.Auth.Enabled {
		if err := a.initAuth(); err != nil {
			loader.Close()
			return nil, err
		}
	}

	resolve := middleware.NewBackendResolver(a.currentBackend, a.authMgr)
	a.mcp = mcpserver.NewServer(cfg.ServerName, cfg.ServerVer, a.cache, a.ToolsetIndex(), resolve)

	reloadCtx, cancel := context.WithCancel(ctx)
	a.reloadCancel = cancel
	go a.watchReloads(reloadCtx)

	return a, nil
}

func (a *App) initAuth() error {
	priv, pub, err := auth.LoadKeyPair(a.cfg.Auth.PrivateKeyPath)
	if err != nil {
		return err
	}
	a.authMgr = auth.NewManager(auth.Config{
		KeyID:                 a.cfg.Auth.KeyID,
		PrivateKey:            priv,
		PublicKey:             pub,
		AllowHTTP:             a.cfg.Auth.AllowHTTP,
		MaxConcurrentSessions: a.cfg.Auth.MaxConcurrentSessions,
		CleanupInterval:       a.cfg.Auth.CleanupInterval,
	})
	return nil
}

// reload performs one synchronous config load, compile, and swap cycle.
func (a *App) reload() error {
	merged, diags, err := a.loader.Load(a.cfg.Specifiers, a.cfg.MergeOptions)
	if err != nil {
		return errs.Wrap(errs.KindConfig, err, "load tool configuration")
	}
	for _, d := range diags {
		logging.GetLogger().Warn("config diagnostic", "level", d.Level, "message", d.Message)
	}

	index := tool.BuildToolsetIndex(merged.Toolsets)

	var names []string
	for name := range merged.Tools {
		names = append(names, name)
	}
	selected := index.Select(names, a.cfg.ToolsetNames)
	wantedSet := map[string]bool{}
	for _, n := range selected {
		wantedSet[n] = true
	}

	compiled := make([]*tool.CompiledTool, 0, len(selected))
	for name, desc := range merged.Tools {
		if !wantedSet[name] {
			continue
		}
		desc.Name = name
		ct, err := tool.Compile(name, desc, index.ToolsetsOf)
		if err != nil {
			return err
		}
		compiled = append(compiled, ct)
	}

	sources := pool.NewSourceManager(merged.Sources)
	breakers := resilience.NewManager(resilience.Config{})
	backend := resilience.NewGuardedBackend(sources, breakers)

	var sourceNames []string
	for name := range merged.Sources {
		sourceNames = append(sourceNames, name)
	}
	aggregator := health.NewAggregator(sources, sourceNames)

	if a.cache == nil {
		a.cache = tool.NewRegistrationCache()
	}
	a.cache.Rebuild(compiled, len(merged.Toolsets))

	a.lockedSwap(sources, breakers, backend, index, aggregator)

	if a.mcp != nil {
		a.mcp.RegisterTools()
	}

	logging.GetLogger().Info("config (re)loaded", "tools", len(compiled), "toolsets", len(merged.Toolsets), "sources", len(merged.Sources))
	return nil
}

// lockedSwap installs the newly built sources/breakers/backend/index/
// aggregator as the single atomic update step of reload. The previous
// *pool.SourceManager is left open: in-flight requests may still be
// reading it through a backend snapshot obtained before the swap.
func (a *App) lockedSwap(sources *pool.SourceManager, breakers *resilience.Manager, backend tool.Backend, index *tool.ToolsetIndex, aggregator *health.Aggregator) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sources = sources
	a.breakers = breakers
	a.backend = backend
	a.index = index
	a.aggregator = aggregator
}

// currentBackend returns the resilience-guarded backend in effect right
// now. Passed to middleware.NewBackendResolver so every invocation
// observes the latest config reload instead of the one in effect when the
// resolver was built.
func (a *App) currentBackend() tool.Backend {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend
}

func (a *App) currentAggregator() *health.Aggregator {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.aggregator
}

// watchReloads consumes bus.ReloadTopic events published by the config
// watcher and re-runs reload; watchers only ever invalidate and notify,
// the rebuild itself happens here on one goroutine.
func (a *App) watchReloads(ctx context.Context) {
	events, err := a.busImpl.Subscribe(ctx, bus.ReloadTopic)
	if err != nil {
		logging.GetLogger().Error("failed to subscribe to config reload topic", "error", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			if err := a.reload(); err != nil {
				logging.GetLogger().Error("config reload failed", "error", err)
			}
		}
	}
}

// MCPServer returns the Tool Runtime Adapter's underlying server.
func (a *App) MCPServer() *mcpserver.Server { return a.mcp }

// RegistrationCache exposes the live compiled-tool cache, e.g. for
// --list-toolsets.
func (a *App) RegistrationCache() *tool.RegistrationCache { return a.cache }

// ToolsetIndex exposes the live toolset index.
func (a *App) ToolsetIndex() *tool.ToolsetIndex {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.index
}

// HTTPHandler assembles the full authenticated-mode HTTP surface: the
// auth endpoints, health/metrics endpoints, and the MCP streamable-HTTP
// transport, wrapped in the standard middleware chain.
func (a *App) HTTPHandler() http.Handler {
	mux := http.NewServeMux()

	if a.authMgr != nil {
		h := auth.NewHandler(a.authMgr)
		mux.HandleFunc("GET /api/v1/auth/public-key", h.PublicKey)
		mux.HandleFunc("POST /api/v1/auth", h.Issue)
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if agg := a.currentAggregator(); agg != nil {
			agg.LivenessHandler().ServeHTTP(w, r)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if agg := a.currentAggregator(); agg != nil {
			agg.ReadinessHandler().ServeHTTP(w, r)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/mcp", a.mcp.HTTPHandler())

	return middleware.Chain(middleware.RequestLogging, middleware.SecurityHeaders, middleware.BearerAuth)(mux)
}

// Shutdown stops background goroutines and releases pools, tokens, and
// watchers.
func (a *App) Shutdown() {
	if a.reloadCancel != nil {
		a.reloadCancel()
	}
	if a.authMgr != nil {
		a.authMgr.Shutdown()
	}
	a.mu.RLock()
	sources := a.sources
	a.mu.RUnlock()
	if sources != nil {
		sources.Close()
	}
	_ = a.loader.Close()
	_ = a.busImpl.Close()
}

// MarkReady flips the readiness gate once the initial config load has
// completed; New already performs that load
// synchronously, so callers typically invoke this immediately after New
// returns successfully.
func (a *App) MarkReady() {
	if agg := a.currentAggregator(); agg != nil {
		agg.MarkReady()
	}
}
