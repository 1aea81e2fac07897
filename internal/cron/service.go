package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const defaultInterval = 24 * time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	// JobTimeout bounds a single job. Zero leaves jobs bounded only by the
	// worker context.
	JobTimeout time.Duration
}

// Service runs the registered maintenance jobs once per interval. Only the
// replica holding the lock runs a cycle.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.JobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron: logger required")
	case params.Lock == nil:
		return nil, errors.New("cron: lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:       params.Logger,
		registry:   registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   interval,
		jobTimeout: max(params.JobTimeout, 0),
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
// Cycle failures are logged; they never stop the loop.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "cron.cycle.failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle runs every job under the lock and combines their failures.
func (s *Service) runCycle(ctx context.Context) error {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	if !held {
		s.logg.Info(ctx, "cron.cycle.skipped")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron.lock.release_failed", err)
		}
	}()

	jobs := s.registry.Jobs()
	started := time.Now()
	var errs error
	for _, job := range jobs {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		if err := s.runJob(ctx, job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":        len(jobs),
		"failed":      len(multierr.Errors(errs)),
		"duration_ms": time.Since(started).Milliseconds(),
	}), "cron.cycle.completed")
	return errs
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx := s.logg.WithField(ctx, "job", name)
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, s.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.ObserveDuration(name, elapsed)

	logCtx := s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.metrics.IncFailure(name)
		s.logg.Error(logCtx, "cron.job.failed", err)
		return err
	}
	s.metrics.IncSuccess(name)
	s.logg.Info(logCtx, "cron.job.completed")
	return nil
}
