// Package main is the entry point for the profile feed ingest worker.
// It mirrors profile change events from the upstream feed into the
// snapshot store that the API server ranks from.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/duskbound/affinity/internal/config"
	"github.com/duskbound/affinity/internal/db"
	"github.com/duskbound/affinity/internal/ingest"
	"github.com/duskbound/affinity/internal/middleware"
	"github.com/duskbound/affinity/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Affinity Ingest Worker")
		fmt.Println()
		fmt.Println("Usage: ingest [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	profileStore := store.NewPostgresProfileStore(conn, logger)

	reg := prometheus.NewRegistry()
	metrics := ingest.NewMetrics()
	if err := metrics.Register(reg); err != nil {
		logger.Error("failed to register ingest metrics", "error", err)
		os.Exit(1)
	}

	handler := ingest.NewHandler(profileStore, metrics, logger)
	client, err := ingest.NewClient(ingest.DefaultConfig(cfg.ProfileFeedURL), handler.HandleMessage, profileStore, logger)
	if err != nil {
		logger.Error("invalid feed client configuration", "error", err)
		os.Exit(1)
	}

	// Operational endpoints: metrics behind the internal token, plus a
	// plain liveness probe.
	opsMux := http.NewServeMux()
	opsMux.Handle("/metrics", ingest.InternalAuthMiddleware(cfg.InternalToken)(ingest.MetricsHandler(reg)))
	opsMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	})

	opsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      opsMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting ops server", "port", cfg.Port)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("starting profile feed client", "url", cfg.ProfileFeedURL)
	if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("feed client stopped with error", "error", err)
	}

	logger.Info("shutting down ops server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("ingest worker stopped")
}
