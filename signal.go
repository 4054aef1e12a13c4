package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// exitInterrupted is the status of a forced exit, as a shell reports SIGINT.
const exitInterrupted = 130

// shutdownContext returns a context canceled by the first SIGINT or
// SIGTERM. Running passes then finish their batch and persist the cache. A
// second signal exits at once.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-ctx.Done()
		stop()

		if parent.Err() != nil {
			return
		}

		force := make(chan os.Signal, 1)
		signal.Notify(force, os.Interrupt, syscall.SIGTERM)

		defer signal.Stop(force)

		logger.Info("shutting down after the current batch; signal again to exit now")

		select {
		case sig := <-force:
			logger.Warn("forced exit", slog.String("signal", sig.String()))
			os.Exit(exitInterrupted)
		case <-parent.Done():
		}
	}()

	return ctx
}
