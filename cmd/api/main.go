package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kupilikula/rocketshop-market-backend/api/routes"
	"github.com/kupilikula/rocketshop-market-backend/internal/billing"
	"github.com/kupilikula/rocketshop-market-backend/internal/cart"
	"github.com/kupilikula/rocketshop-market-backend/internal/catalog"
	"github.com/kupilikula/rocketshop-market-backend/internal/checkout"
	"github.com/kupilikula/rocketshop-market-backend/internal/discount"
	"github.com/kupilikula/rocketshop-market-backend/internal/eligibility"
	"github.com/kupilikula/rocketshop-market-backend/internal/offers"
	"github.com/kupilikula/rocketshop-market-backend/internal/orders"
	"github.com/kupilikula/rocketshop-market-backend/internal/payments"
	"github.com/kupilikula/rocketshop-market-backend/internal/shipping"
	"github.com/kupilikula/rocketshop-market-backend/internal/shippingrules"
	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db"
	"github.com/kupilikula/rocketshop-market-backend/pkg/instance"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	"github.com/kupilikula/rocketshop-market-backend/pkg/metrics"
	"github.com/kupilikula/rocketshop-market-backend/pkg/migrate"
	"github.com/kupilikula/rocketshop-market-backend/pkg/outbox"
	"github.com/kupilikula/rocketshop-market-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Instance:    instance.ID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := payments.NewGateway(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to create payment gateway", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	offersRepo := offers.NewRepository(conn)
	resolver := eligibility.NewResolver(catalogRepo)
	aggregator := billing.NewAggregator(
		discount.NewEngine(offersRepo),
		shipping.NewEngine(shippingrules.NewRepository(conn), cfg.Checkout.DomesticCountry),
	).WithShippingTax(cfg.Checkout.TaxShipping)

	checkoutService, err := checkout.NewService(checkout.Deps{
		Tx:       dbClient,
		Catalog:  catalogRepo,
		Billing:  aggregator,
		Orders:   orders.NewRepository(conn),
		Accounts: payments.NewAccountsRepository(conn),
		Gateway:  gateway,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:   logg,
		Metrics:  metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		Config:   cfg.Checkout,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(catalogRepo, aggregator, logg, cfg.Checkout.MaxConcurrentGroups)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	offersService, err := offers.NewService(offersRepo, resolver)
	if err != nil {
		logg.Error(ctx, "failed to create offers service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"provider": gateway.Provider(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			DB:               dbClient,
			Redis:            redisClient,
			Gatherer:         prometheus.DefaultGatherer,
			Checkout:         checkoutService,
			Cart:             cartService,
			Offers:           offersService,
			PaymentKeySecret: cfg.Razorpay.KeySecret,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
