// Package cron runs the housekeeping jobs of the market backend under a
// cluster-wide lease so only one worker replica cleans up at a time.
package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	"github.com/kupilikula/rocketshop-market-backend/pkg/metrics"
)

const (
	defaultInterval = time.Hour
	releaseTimeout  = 5 * time.Second
)

// Job is one housekeeping task. Name labels logs and metrics and must be
// unique within a Service.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger   *logger.Logger
	Jobs     []Job
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

type Service struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}

	svc := &Service{
		logg:     params.Logger,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}

	names := map[string]bool{}
	for _, job := range params.Jobs {
		if job == nil {
			continue
		}
		if names[job.Name()] {
			return nil, fmt.Errorf("duplicate job %q", job.Name())
		}
		names[job.Name()] = true
		svc.jobs = append(svc.jobs, job)
	}
	return svc, nil
}

// Run starts a cycle right away and then one per interval. Cycle failures
// are logged; only ctx ending stops the loop.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logg.Error(ctx, "cron.cycle.failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs every job once if this replica wins the lease. A failing job
// does not stop the ones after it; all failures come back combined. The
// lease is renewed before each job after the first, and the cycle ends early
// if it was lost.
func (s *Service) RunOnce(ctx context.Context) (err error) {
	won, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !won {
		s.logg.Info(ctx, "cron.cycle.skipped")
		return nil
	}
	defer func() {
		// ctx may already be canceled at shutdown.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		multierr.AppendInto(&err, s.lock.Release(releaseCtx))
	}()

	for i, job := range s.jobs {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return multierr.Append(err, ctxErr)
		}
		if i > 0 {
			held, extendErr := s.lock.Extend(ctx)
			if extendErr != nil {
				return multierr.Append(err, extendErr)
			}
			if !held {
				return multierr.Append(err, errLockLost)
			}
		}
		if jobErr := s.runJob(ctx, job); jobErr != nil {
			multierr.AppendInto(&err, fmt.Errorf("%s: %w", job.Name(), jobErr))
		}
	}
	return err
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	start := time.Now()
	err := job.Run(ctx)
	end := time.Now()
	took := end.Sub(start)

	s.metrics.ObserveRun(job.Name(), err, took, end)
	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron.job.failed", err)
		return err
	}
	s.logg.Info(ctx, "cron.job.completed")
	return nil
}
