// Package main provides the entry point for the RapidTriage server.
// It accepts triage reports over HTTP and returns their enriched addresses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lvonguyen/rapidtriage/internal/api"
	"github.com/lvonguyen/rapidtriage/internal/config"
	"github.com/lvonguyen/rapidtriage/internal/observability"
	"github.com/lvonguyen/rapidtriage/internal/triage"
)

// Version information (injected at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("RapidTriage server %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
			os.Exit(1)
		}
		cfg = config.DefaultConfig()
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	tel, err := observability.New(observability.Config{
		ServiceName:    "rapidtriage",
		ServiceVersion: Version,
		Logging:        cfg.Logging,
		MetricsEnabled: cfg.Metrics.Enabled,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing telemetry: %v\n", err)
		os.Exit(1)
	}
	defer tel.Shutdown()
	logger := tel.Logger()

	logger.Info("Starting RapidTriage server",
		zap.String("version", Version),
		zap.String("config", *configPath),
	)

	pipeline, cleanup, err := triage.Build(cfg, tel.Metrics(), logger)
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	defer cleanup()

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = tel.MetricsHandler()
	}

	srv := api.NewServer(pipeline, api.Config{
		Version:        Version,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		MaxAddresses:   cfg.MaxBatchAddresses(),
		RequestTimeout: cfg.Server.WriteTimeout,
	}, tel.Metrics(), metricsHandler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}
