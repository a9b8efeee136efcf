package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Serve listens on the configured address and serves until ctx is done,
// then shuts the server down gracefully.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.config.ListenAddr)
	if err != nil {
		return errors.Wrapf(err, "could not listen on %s", a.config.ListenAddr)
	}
	return a.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done. ln is closed on return.
func (a *App) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Server starting", "address", ln.Addr().String(), "routes", a.registry.Len())
		// Serve returns ErrServerClosed after a graceful shutdown.
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			a.logger.Error("Server failed unexpectedly", "error", err)
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server shutdown failed", "error", err)
		return errors.Wrap(err, "shutdown failed")
	}
	<-errCh
	a.logger.Debug("Server shut down gracefully.")
	return nil
}
