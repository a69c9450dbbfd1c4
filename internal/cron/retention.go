package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
)

const (
	defaultBatchLimit = 1000
	maxBatches        = 100
)

// pruneFunc deletes up to limit rows older than before.
type pruneFunc func(ctx context.Context, before time.Time, limit int) (int64, error)

type attemptPruner interface {
	PruneAttempts(ctx context.Context, before time.Time, limit int) (int64, error)
}

type outboxPruner interface {
	PrunePublished(ctx context.Context, before time.Time, limit int) (int64, error)
}

// RetentionParams configure a retention job.
type RetentionParams struct {
	Logger     *logger.Logger
	Retention  time.Duration
	BatchLimit int
}

// NewAttemptRetentionJob prunes checkout attempts that have long left the
// duplicate window.
func NewAttemptRetentionJob(repo attemptPruner, params RetentionParams) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	job, err := newRetentionJob("prune-attempts", repo.PruneAttempts, params)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// NewOutboxRetentionJob prunes outbox rows that were already published.
func NewOutboxRetentionJob(repo outboxPruner, params RetentionParams) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job, err := newRetentionJob("prune-outbox", repo.PrunePublished, params)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func newRetentionJob(name string, prune pruneFunc, params RetentionParams) (*retentionJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Retention <= 0 {
		return nil, fmt.Errorf("%s: retention must be positive", name)
	}
	limit := params.BatchLimit
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	return &retentionJob{
		name:      name,
		prune:     prune,
		logg:      params.Logger,
		retention: params.Retention,
		limit:     limit,
		now:       time.Now,
	}, nil
}

type retentionJob struct {
	name      string
	prune     pruneFunc
	logg      *logger.Logger
	retention time.Duration
	limit     int
	now       func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

// Run deletes in batches until a short batch shows the backlog is drained.
func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	for batch := 0; batch < maxBatches; batch++ {
		deleted, err := j.prune(ctx, cutoff, j.limit)
		if err != nil {
			return fmt.Errorf("prune batch %d: %w", batch, err)
		}
		total += deleted
		if deleted < int64(j.limit) {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": total,
	}), "retention cleanup complete")
	return nil
}
