package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kupilikula/rocketshop-market-backend/internal/cron"
	"github.com/kupilikula/rocketshop-market-backend/internal/orders"
	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db"
	"github.com/kupilikula/rocketshop-market-backend/pkg/instance"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	"github.com/kupilikula/rocketshop-market-backend/pkg/metrics"
	"github.com/kupilikula/rocketshop-market-backend/pkg/outbox"
	"github.com/kupilikula/rocketshop-market-backend/pkg/redis"
)

const (
	serviceName = "cron-worker"
	lockName    = "cron-worker"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Instance:    instance.ID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "interval": cfg.Cron.Interval.String()})

	if err := run(ctx, cfg, logg, *once); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, once bool) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWith(logg, "database", dbClient.Close)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeWith(logg, "redis", redisClient.Close)

	service, err := newService(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}

	if once {
		logg.Info(ctx, "running single cron cycle")
		return service.RunOnce(ctx)
	}
	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

func newService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Service, error) {
	lock, err := cron.NewRedisLock(redisClient, lockName, cfg.Cron.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("cron lock: %w", err)
	}

	params := func(retention time.Duration) cron.RetentionParams {
		return cron.RetentionParams{Logger: logg, Retention: retention, BatchLimit: cfg.Cron.CleanupBatchLimit}
	}
	attempts, err := cron.NewAttemptRetentionJob(orders.NewRepository(dbClient.DB()), params(cfg.Cron.AttemptRetention))
	if err != nil {
		return nil, fmt.Errorf("attempt retention job: %w", err)
	}
	outboxRows, err := cron.NewOutboxRetentionJob(outbox.NewRepository(dbClient.DB()), params(cfg.Cron.OutboxRetention))
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{attempts, outboxRows},
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
}

func closeWith(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
