// Package main provides the RapidTriage batch command. It scans a directory
// of triage reports for established public connections and checks each
// address against blocklist.de.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"

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
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to config file")
	input := flag.String("input", "", "Directory containing triage reports")
	output := flag.String("output", "", "Path of the output file")
	concurrency := flag.Int("concurrency", 0, "Maximum in-flight lookups")
	timeout := flag.Duration("timeout", 0, "Per-lookup timeout")
	insecure := flag.Bool("insecure", false, "Disable TLS certificate verification for lookups")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("RapidTriage %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		return 0
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	// Flags override file and environment.
	if *input != "" {
		cfg.InputDirectory = *input
	}
	if *output != "" {
		cfg.OutputPath = *output
	}
	if *concurrency != 0 {
		cfg.Enrichment.Concurrency = *concurrency
	}
	if *timeout != 0 {
		cfg.Enrichment.RequestTimeout = *timeout
	}
	if *insecure {
		cfg.Enrichment.InsecureTLS = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.Logging, zap.String("version", Version))
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	pipeline, cleanup, err := triage.Build(cfg, nil, logger)
	if err != nil {
		logger.Error("Invalid configuration", zap.Error(err))
		return 1
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	logger.Info("Starting RapidTriage",
		zap.String("input_directory", cfg.InputDirectory),
		zap.String("output_path", cfg.OutputPath),
		zap.Int("concurrency", cfg.Enrichment.Concurrency),
		zap.Duration("request_timeout", cfg.Enrichment.RequestTimeout),
	)

	result, err := pipeline.Run(ctx, cfg.InputDirectory)
	if err != nil {
		logger.Error("Triage run failed", zap.Error(err))
		return 1
	}

	if err := pipeline.WriteOutput(cfg.OutputPath, result.Report); err != nil {
		logger.Error("Failed to write output", zap.Error(err))
		return 1
	}

	logger.Info("Triage complete",
		zap.Int("reports", len(result.Files)),
		zap.Int("skipped_reports", len(multierr.Errors(result.FileErrors))),
		zap.Int("addresses", len(result.Report.Addresses)),
		zap.Int("flagged", len(result.Report.Flagged)),
		zap.Int("unresolved", len(result.Report.Unresolved)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return 0
}

// loadConfig reads the file when given, then applies environment overrides.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}
