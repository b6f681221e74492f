package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/lvonguyen/rapidtriage/internal/netaddr"
	"github.com/lvonguyen/rapidtriage/internal/observability"
)

// SchedulerConfig bounds a run.
type SchedulerConfig struct {
	Concurrency  int
	RetryBackoff time.Duration
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Concurrency:  8,
		RetryBackoff: time.Second,
	}
}

// Scheduler drives a Provider over a list of addresses with bounded
// concurrency and one retry for transient failures.
type Scheduler struct {
	provider Provider
	throttle Throttle
	metrics  *observability.Metrics
	logger   *zap.Logger
	config   SchedulerConfig
	inflight singleflight.Group
}

// NewScheduler creates a scheduler. throttle and metrics may be nil.
func NewScheduler(provider Provider, cfg SchedulerConfig, throttle Throttle, metrics *observability.Metrics, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	return &Scheduler{
		provider: provider,
		throttle: throttle,
		metrics:  metrics,
		logger:   logger,
		config:   cfg,
	}
}

// Source returns the provider name.
func (s *Scheduler) Source() string {
	return s.provider.Name()
}

// Concurrency returns the in-flight lookup bound.
func (s *Scheduler) Concurrency() int {
	return s.config.Concurrency
}

// HealthCheck delegates to the provider.
func (s *Scheduler) HealthCheck(ctx context.Context) error {
	return s.provider.HealthCheck(ctx)
}

// Run looks up every address and returns the partitioned report. It always
// returns a complete report; if ctx is cancelled, addresses not yet looked up
// are recorded as Unresolved without a network call.
func (s *Scheduler) Run(ctx context.Context, addrs []netaddr.Address) *Report {
	start := time.Now()
	unique := netaddr.NewAddressSet(addrs...).Sorted()

	var (
		mu       sync.Mutex
		outcomes = make(map[netaddr.Address]Outcome, len(unique))
		g        errgroup.Group
	)
	g.SetLimit(s.config.Concurrency)

	for _, addr := range unique {
		addr := addr
		g.Go(func() error {
			o := s.resolve(ctx, addr)
			mu.Lock()
			outcomes[addr] = o
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report := newReport(s.provider.Name(), unique, outcomes)

	s.logger.Info("Enrichment complete",
		zap.String("source", report.Source),
		zap.Int("addresses", len(report.Addresses)),
		zap.Int("flagged", len(report.Flagged)),
		zap.Int("clean", len(report.Clean)),
		zap.Int("unresolved", len(report.Unresolved)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report
}

// resolve performs the first attempt and at most one retry.
func (s *Scheduler) resolve(ctx context.Context, addr netaddr.Address) Outcome {
	o := s.attempt(ctx, addr)

	if o.Retryable() && ctx.Err() == nil {
		s.metrics.RecordRetry()
		s.logger.Warn("Lookup failed, retrying",
			zap.Stringer("ip", addr),
			zap.Stringer("reason", o.Reason),
			zap.Error(o.Err),
			zap.Duration("backoff", s.config.RetryBackoff),
		)
		if sleep(ctx, s.config.RetryBackoff) == nil {
			o = s.attempt(ctx, addr)
		}
	}

	s.metrics.RecordLookup(o.Verdict.String())
	switch o.Verdict {
	case VerdictUnresolved:
		s.logger.Warn("Lookup unresolved",
			zap.Stringer("ip", addr),
			zap.Stringer("reason", o.Reason),
			zap.Error(o.Err),
		)
	default:
		s.logger.Debug("Lookup resolved",
			zap.Stringer("ip", addr),
			zap.Stringer("verdict", o.Verdict),
			zap.Uint64("reports", o.ReportCount),
		)
	}
	return o
}

// attempt makes one provider call, sharing it with any identical call already
// in flight. The shared call runs detached from every caller's cancellation
// and is bounded by the provider's own request timeout; each caller stops
// waiting when its own ctx is done.
func (s *Scheduler) attempt(ctx context.Context, addr netaddr.Address) Outcome {
	if err := ctx.Err(); err != nil {
		return cancelledOutcome(err)
	}
	if s.throttle != nil {
		if err := s.throttle.Wait(ctx); err != nil {
			return Unresolved(ReasonTransportError, fmt.Errorf("%w: rate limit wait: %w", ErrTransport, err))
		}
	}

	start := time.Now()
	detached := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(addr.String(), func() (any, error) {
		return s.provider.Lookup(detached, addr), nil
	})

	var o Outcome
	select {
	case res := <-ch:
		o = res.Val.(Outcome)
	case <-ctx.Done():
		o = cancelledOutcome(ctx.Err())
	}
	s.metrics.RecordAttempt(o.Label(), time.Since(start))
	return o
}

func cancelledOutcome(err error) Outcome {
	return Unresolved(ReasonTransportError, fmt.Errorf("%w: run cancelled: %w", ErrTransport, err))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
