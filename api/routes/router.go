package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kupilikula/rocketshop-market-backend/api/controllers"
	"github.com/kupilikula/rocketshop-market-backend/api/middleware"
	"github.com/kupilikula/rocketshop-market-backend/internal/cart"
	checkoutsvc "github.com/kupilikula/rocketshop-market-backend/internal/checkout"
	"github.com/kupilikula/rocketshop-market-backend/internal/offers"
	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	"github.com/kupilikula/rocketshop-market-backend/pkg/redis"
)

// Deps are the services the HTTP surface dispatches to.
type Deps struct {
	DB               controllers.Pinger
	Redis            *redis.Client
	Gatherer         prometheus.Gatherer
	Checkout         checkoutsvc.Service
	Cart             cart.Service
	Offers           offers.Service
	PaymentKeySecret string
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", time.Minute, cfg.Checkout.RateLimitPerMinute)

	var (
		limiter     middleware.RateLimiterStore
		idempotency redis.IdempotencyStore
	)
	if deps.Redis != nil {
		limiter, idempotency = deps.Redis, deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessDeps(deps)))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/offers", func(r chi.Router) {
			r.Post("/validate-code", controllers.OffersValidateCode(deps.Offers, logg))
			r.Get("/applicable", controllers.OffersApplicable(deps.Offers, logg))
		})
		r.Route("/cart", func(r chi.Router) {
			r.Post("/summary", controllers.CartSummary(deps.Cart, logg))
			r.Post("/validate-item", controllers.CartValidateItem(deps.Cart, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.With(
				middleware.RateLimit(checkoutPolicy, limiter, logg),
				middleware.Idempotency(idempotency, logg),
			).Post("/checkout", controllers.Checkout(deps.Checkout, logg))
			r.With(middleware.Idempotency(idempotency, logg)).
				Post("/payments/verify", controllers.PaymentsVerify(deps.PaymentKeySecret, logg))
		})
	})

	return r
}

func readinessDeps(deps Deps) map[string]controllers.Pinger {
	out := map[string]controllers.Pinger{}
	if deps.DB != nil {
		out["database"] = deps.DB
	}
	if deps.Redis != nil {
		out["redis"] = deps.Redis
	}
	return out
}
