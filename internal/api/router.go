package api

import (
	"net/http"
	"time"

	"github.com/ayo6706/payment-screening/internal/api/handler"
	"github.com/ayo6706/payment-screening/internal/api/middleware"
	"github.com/ayo6706/payment-screening/internal/api/spec"
	"github.com/ayo6706/payment-screening/internal/config"
	"github.com/ayo6706/payment-screening/internal/idempotency"
	"github.com/ayo6706/payment-screening/internal/observability"
	"github.com/ayo6706/payment-screening/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Services groups the collaborators the HTTP layer calls into.
type Services struct {
	Webhooks   *service.WebhookService
	Screening  *service.ScreeningService
	BlockList  *service.BlockListService
	Reversals  *service.ReversalService
	Accounts   *service.AccountService
	Dispatcher handler.Dispatcher
}

type Router struct {
	cfg    *config.Config
	logger *zap.Logger
	db     handler.Pinger
	idem   *idempotency.Store
	redis  redis.Cmdable
	svc    Services
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db handler.Pinger, idem *idempotency.Store, redis redis.Cmdable, svc Services) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{cfg: cfg, logger: logger, db: db, idem: idem, redis: redis, svc: svc}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	webhookHandler := handler.NewWebhookHandler(api.svc.Webhooks, api.svc.Dispatcher)
	pendingHandler := handler.NewPendingPaymentHandler(api.svc.Screening)
	blockListHandler := handler.NewBlockListHandler(api.svc.BlockList)
	reversalHandler := handler.NewReversalHandler(api.svc.Reversals)
	accountHandler := handler.NewAccountHandler(api.svc.Accounts)

	// Operational
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", observability.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Rail notifications, authenticated by HMAC signature.
	r.With(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS)).
		Post("/v1/webhooks/payments", webhookHandler.HandlePaymentWebhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))
		r.Use(middleware.RequireRole(middleware.RoleReviewer, middleware.RoleAdmin))

		r.Get("/v1/webhooks/{id}", webhookHandler.GetWebhook)

		r.Get("/v1/pending-payments", pendingHandler.List)
		r.Get("/v1/pending-payments/{id}", pendingHandler.Get)
		r.With(middleware.IdempotencyMiddleware(api.idem, api.logger)).
			Post("/v1/pending-payments/review", pendingHandler.Review)

		r.Get("/v1/blocklist", blockListHandler.List)
		r.Post("/v1/blocklist/check", blockListHandler.Check)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleAdmin))
			r.Post("/v1/blocklist", blockListHandler.Add)
			r.Delete("/v1/blocklist/{id}", blockListHandler.Deactivate)
		})

		r.Get("/v1/reversals", reversalHandler.List)

		r.Get("/v1/accounts/{id}", accountHandler.GetAccount)
		r.Get("/v1/accounts/{id}/transactions", accountHandler.ListTransactions)
	})

	return r
}
