// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/app"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/logging"
)

// serveHTTP runs the app's HTTP surface (auth, health, metrics, and the
// streamable-HTTP dispatch transport) until ctx is canceled, then drains
// in-flight requests for up to shutdownTimeout before returning.
func serveHTTP(ctx context.Context, a *app.App, listenAddr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: a.HTTPHandler()}

	logging.GetLogger().Info("HTTP server listening", "port", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
