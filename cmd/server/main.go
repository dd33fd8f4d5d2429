package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pixpax/internal/app"
	"pixpax/internal/platform/config"
	"pixpax/internal/platform/httpserver"
	"pixpax/internal/platform/logger"
)

// main wires config and logging, hands assembly to internal/app and keeps
// the server lifecycle small.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing pixpax",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"dev_untracked", cfg.AllowDevUntracked,
	)

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to assemble server", "error", err)
		os.Exit(1)
	}

	srv := httpserver.New(cfg.Addr, application.Handler())
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("shutting down server gracefully")
	case err := <-errCh:
		log.Error("server error", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		exitCode = 1
	}
	if err := application.Close(shutdownCtx); err != nil {
		log.Error("failed to release resources", "error", err)
		exitCode = 1
	}

	log.Info("server stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
