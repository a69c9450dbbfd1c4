package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kupilikula/rocketshop-market-backend/internal/orders"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db/dbtest"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db/models"
)

type fakePruner struct {
	remaining int64
	calls     int
	cutoffs   []time.Time
	err       error
}

func (f *fakePruner) PrunePublished(_ context.Context, before time.Time, limit int) (int64, error) {
	f.calls++
	f.cutoffs = append(f.cutoffs, before)
	if f.err != nil {
		return 0, f.err
	}
	n := min(f.remaining, int64(limit))
	f.remaining -= n
	return n, nil
}

func TestRetentionJob_DrainsInBatches(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	pruner := &fakePruner{remaining: 25}
	job, err := NewOutboxRetentionJob(pruner, RetentionParams{Logger: testLogger(), Retention: 24 * time.Hour, BatchLimit: 10})
	require.NoError(t, err)
	job.(*retentionJob).now = func() time.Time { return now }

	require.Equal(t, "prune-outbox", job.Name())
	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 3, pruner.calls)
	require.Zero(t, pruner.remaining)
	require.Equal(t, now.Add(-24*time.Hour), pruner.cutoffs[0])
}

func TestRetentionJob_ExactBatchNeedsOneMoreCall(t *testing.T) {
	pruner := &fakePruner{remaining: 10}
	job, err := NewOutboxRetentionJob(pruner, RetentionParams{Logger: testLogger(), Retention: time.Hour, BatchLimit: 10})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 2, pruner.calls)
}

func TestRetentionJob_PropagatesErrors(t *testing.T) {
	pruner := &fakePruner{err: errors.New("db down")}
	job, err := NewOutboxRetentionJob(pruner, RetentionParams{Logger: testLogger(), Retention: time.Hour})
	require.NoError(t, err)
	require.ErrorContains(t, job.Run(context.Background()), "db down")
}

func TestAttemptRetentionJob_PrunesOldAttempts(t *testing.T) {
	db := dbtest.Open(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{now.Add(-10 * 24 * time.Hour), now.Add(-8 * 24 * time.Hour), now.Add(-time.Hour)} {
		require.NoError(t, db.Create(&models.CheckoutAttempt{
			CustomerID:  uuid.New(),
			Fingerprint: string(rune('a' + i)),
			StoreID:     uuid.New(),
			OrderID:     uuid.New(),
			AttemptedAt: at,
		}).Error)
	}

	job, err := NewAttemptRetentionJob(orders.NewRepository(db), RetentionParams{
		Logger:     testLogger(),
		Retention:  7 * 24 * time.Hour,
		BatchLimit: 1,
	})
	require.NoError(t, err)
	job.(*retentionJob).now = func() time.Time { return now }

	require.Equal(t, "prune-attempts", job.Name())
	require.NoError(t, job.Run(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.CheckoutAttempt{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestRetentionJob_Validation(t *testing.T) {
	_, err := NewOutboxRetentionJob(nil, RetentionParams{Logger: testLogger(), Retention: time.Hour})
	require.Error(t, err)
	_, err = NewOutboxRetentionJob(&fakePruner{}, RetentionParams{Retention: time.Hour})
	require.Error(t, err)
	_, err = NewOutboxRetentionJob(&fakePruner{}, RetentionParams{Logger: testLogger()})
	require.Error(t, err)
}
