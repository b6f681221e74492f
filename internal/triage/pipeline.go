// Package triage wires report discovery, extraction, enrichment and output
// into one run.
package triage

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lvonguyen/rapidtriage/internal/enrichment"
	"github.com/lvonguyen/rapidtriage/internal/ingestion"
	"github.com/lvonguyen/rapidtriage/internal/netaddr"
	"github.com/lvonguyen/rapidtriage/internal/observability"
	"github.com/lvonguyen/rapidtriage/internal/report"
)

// Pipeline runs a triage pass over a directory of reports.
type Pipeline struct {
	scheduler *enrichment.Scheduler
	suffix    string
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// Result is the outcome of one run.
type Result struct {
	Report *enrichment.Report
	Files  []string
	// FileErrors combines the reports that could not be read; nil if none.
	FileErrors error
}

// NewPipeline creates a pipeline. An empty suffix uses the collector default.
func NewPipeline(scheduler *enrichment.Scheduler, suffix string, metrics *observability.Metrics, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if suffix == "" {
		suffix = ingestion.DefaultReportSuffix
	}
	return &Pipeline{
		scheduler: scheduler,
		suffix:    suffix,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run discovers reports under inputDir, extracts and aggregates their
// addresses, and enriches the master list. Unreadable reports are skipped and
// collected in Result.FileErrors; the returned error is reserved for an
// unusable input directory.
func (p *Pipeline) Run(ctx context.Context, inputDir string) (*Result, error) {
	files, err := ingestion.Discover(inputDir, p.suffix, p.logger)
	if err != nil {
		return nil, fmt.Errorf("discovering reports: %w", err)
	}
	p.logger.Info("Discovered triage reports",
		zap.String("input_directory", inputDir),
		zap.Int("count", len(files)),
	)

	var fileErrs error
	agg := ingestion.NewAggregator()
	for _, path := range files {
		lines, err := ingestion.ReadReport(path)
		if err != nil {
			p.logger.Error("Skipping unreadable report", zap.String("path", path), zap.Error(err))
			p.metrics.RecordReport("error")
			fileErrs = multierr.Append(fileErrs, err)
			continue
		}
		set := ingestion.Extract(lines)
		agg.Add(set)
		p.metrics.RecordReport("ok")
		p.logger.Debug("Scanned report",
			zap.String("path", path),
			zap.Int("lines", len(lines)),
			zap.Int("addresses", set.Len()),
		)
	}

	addrs := agg.Sorted()
	p.metrics.SetAddressesDiscovered(len(addrs))
	p.logger.Info("Aggregated public addresses",
		zap.Int("reports", agg.Reports()),
		zap.Int("addresses", len(addrs)),
	)

	return &Result{
		Report:     p.scheduler.Run(ctx, addrs),
		Files:      files,
		FileErrors: fileErrs,
	}, nil
}

// EnrichText extracts and enriches the addresses in one report's raw text.
func (p *Pipeline) EnrichText(ctx context.Context, text string) *enrichment.Report {
	return p.EnrichAddresses(ctx, ingestion.ExtractText(text))
}

// EnrichAddresses enriches addresses already extracted from one report.
func (p *Pipeline) EnrichAddresses(ctx context.Context, set *netaddr.AddressSet) *enrichment.Report {
	p.metrics.RecordReport("ok")
	p.metrics.SetAddressesDiscovered(set.Len())
	return p.scheduler.Run(ctx, set.Sorted())
}

// WriteOutput persists the rendered report to path.
func (p *Pipeline) WriteOutput(path string, r *enrichment.Report) error {
	if err := report.WriteFile(path, r); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	p.logger.Info("Wrote triage output",
		zap.String("path", path),
		zap.Int("flagged", len(r.Flagged)),
		zap.Int("unresolved", len(r.Unresolved)),
	)
	return nil
}

// Scheduler returns the enrichment scheduler.
func (p *Pipeline) Scheduler() *enrichment.Scheduler {
	return p.scheduler
}
