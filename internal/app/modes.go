package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"bodhi/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

// runServer serves the HTTP API and watches the alias directory until ctx
// ends or SIGINT/SIGTERM is received, then shuts down gracefully.
func runServer(ctx context.Context, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := services.Hub.Watch(ctx); err != nil {
		logging.Warn("Server", "Alias hot reload disabled: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- services.Server.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logging.Error("Server", err, "Server stopped")
		}
		return err
	case <-ctx.Done():
	}

	logging.Info("Server", "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := services.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
