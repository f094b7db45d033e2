package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mossy-p/ptt-signaling/config"
	"github.com/mossy-p/ptt-signaling/internal/handlers"
	"github.com/mossy-p/ptt-signaling/internal/logging"
	"github.com/mossy-p/ptt-signaling/internal/redis"
	"github.com/mossy-p/ptt-signaling/internal/registry"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Load configuration
	cfg := config.Load()
	logging.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := handlers.Options{
		MaxMessageSize: cfg.MaxMessageSize,
		SendBuffer:     cfg.SendBuffer,
		StrictSignals:  cfg.StrictSignals,
	}

	// Optional presence mirror
	if cfg.Redis.Enabled() {
		presence, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() {
			resetCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := presence.Reset(resetCtx); err != nil {
				slog.Warn("failed to clear presence", "error", err)
			}
			presence.Close()
		}()
		if err := presence.Reset(ctx); err != nil {
			return err
		}
		opts.Presence = presence
		slog.Info("redis presence mirror enabled", "host", cfg.Redis.Host, "port", cfg.Redis.Port)
	}

	relay := handlers.NewRelay(registry.New(), opts)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(cfg, relay),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting signaling relay", "port", cfg.Port, "environment", cfg.Environment)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	if err := relay.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("relay shutdown: %w", err)
	}
	return nil
}
