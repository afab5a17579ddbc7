package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/vitora-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/vitora-backend/api/controllers/orders"
	transactioncontrollers "github.com/angelmondragon/vitora-backend/api/controllers/transactions"
	webhookcontrollers "github.com/angelmondragon/vitora-backend/api/controllers/webhooks"
	"github.com/angelmondragon/vitora-backend/api/middleware"
	"github.com/angelmondragon/vitora-backend/pkg/config"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/vitora-backend/pkg/redis"
)

// Store is the Redis surface the HTTP layer needs: response replay for
// idempotent writes plus per-IP counters for public endpoints.
type Store interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope, id string) string
}

// Deps carries everything the router hands to controllers. Nil services
// answer 500 from their handlers; a nil Metrics handler drops /metrics.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	Store   Store
	Pingers map[string]controllers.Pinger
	Metrics http.Handler

	Checkout      controllers.CheckoutCreator
	WompiWebhook  webhookcontrollers.WompiWebhookService
	StatusChecker transactioncontrollers.StatusChecker
	Transactions  transactioncontrollers.Reader
	Orders        ordercontrollers.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)

	store := deps.Store
	publicPolicy := middleware.NewRateLimitPolicy("public", cfg.HTTP.PublicRateWindow, cfg.HTTP.PublicRateLimit)
	rateLimited := middleware.PublicRateLimit(publicPolicy, store, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rateLimited)
			r.Use(middleware.Idempotency(store, logg))
			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
			r.Post("/transactions/status", transactioncontrollers.Status(deps.StatusChecker, logg))
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/wompi", webhookcontrollers.WompiWebhook(deps.WompiWebhook, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(logg, enums.MemberRoleAdmin, enums.MemberRoleUser))
			r.Use(middleware.Idempotency(store, logg))

			// Flat paths keep the full route pattern visible to the idempotency
			// middleware; a nested Route would hide the leaf segment.
			r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
			r.Post("/orders", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Put("/orders/{orderId}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
			r.Get("/transactions/{reference}", transactioncontrollers.Get(deps.Transactions, logg))
			r.Get("/transactions/{reference}/events", transactioncontrollers.Events(deps.Transactions, logg))
		})
	})

	return r
}
