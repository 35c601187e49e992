package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
)

// Run serves HTTP until ctx is cancelled, then shuts everything down within
// the configured shutdown timeout.
func (app *application) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		// No WriteTimeout: observer connections and large downloads are
		// long-lived.
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("starting server", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server", "timeout", app.config.Server.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()

		var firstErr error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("http server shutdown failed", "error", err)
			firstErr = err
		}
		if err := app.shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
		app.logger.Info("server stopped")
		return firstErr
	})

	return g.Wait()
}
