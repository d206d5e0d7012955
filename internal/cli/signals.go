package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// withSignals returns a context cancelled on SIGINT or SIGTERM, or when
// parent ends. The returned stop releases the signal handler.
func withSignals(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
