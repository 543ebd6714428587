package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timebankhq/timebank-backend/api/controllers"
	webhookcontrollers "github.com/timebankhq/timebank-backend/api/controllers/webhooks"
	"github.com/timebankhq/timebank-backend/api/middleware"
	"github.com/timebankhq/timebank-backend/internal/accounts"
	authsvc "github.com/timebankhq/timebank-backend/internal/auth"
	"github.com/timebankhq/timebank-backend/internal/catalog"
	"github.com/timebankhq/timebank-backend/internal/ledger"
	"github.com/timebankhq/timebank-backend/internal/notifications"
	subscriptionsvc "github.com/timebankhq/timebank-backend/internal/subscriptions"
	stripewebhook "github.com/timebankhq/timebank-backend/internal/webhooks/stripe"
	"github.com/timebankhq/timebank-backend/pkg/auth/session"
	"github.com/timebankhq/timebank-backend/pkg/config"
	"github.com/timebankhq/timebank-backend/pkg/enums"
	"github.com/timebankhq/timebank-backend/pkg/logger"
	"github.com/timebankhq/timebank-backend/pkg/redis"
	"github.com/timebankhq/timebank-backend/pkg/stripe"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config               *config.Config
	Logger               *logger.Logger
	Redis                *redis.Client
	SessionVerifier      session.AccessSessionChecker
	AuthService          authsvc.Service
	AccountsService      accounts.Service
	CatalogService       catalog.Service
	LedgerService        ledger.Service
	NotificationsService notifications.Service
	SubscriptionsService subscriptionsvc.Service
	StripeClient         *stripe.Client
	StripeWebhookService *stripewebhook.Service
	StripeWebhookGuard   *stripewebhook.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhookService, p.StripeClient, p.StripeWebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(p.AuthService, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionVerifier, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Get("/me", controllers.AccountProfile(p.AccountsService, logg))
		r.Get("/balance", controllers.GetBalance(p.LedgerService, logg))

		r.Route("/services", func(r chi.Router) {
			r.Get("/", controllers.ListServices(p.CatalogService, logg))
			r.Post("/", controllers.CreateService(p.CatalogService, logg))
			r.Get("/{serviceId}", controllers.GetService(p.CatalogService, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.TransactionHistory(p.LedgerService, logg))
			r.Post("/", controllers.OpenTransaction(p.LedgerService, logg))
			r.Get("/{transactionId}", controllers.GetTransaction(p.LedgerService, logg))
			r.Post("/{transactionId}/resolve", controllers.ResolveTransaction(p.LedgerService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.NotificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.NotificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.NotificationsService, logg))
		})

		r.Route("/devices", func(r chi.Router) {
			r.Post("/", controllers.RegisterDevice(p.NotificationsService, logg))
			r.Delete("/", controllers.UnregisterDevice(p.NotificationsService, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", controllers.SubscriptionFetch(p.SubscriptionsService, logg))
			r.Post("/", controllers.SubscriptionCreate(p.SubscriptionsService, logg))
			r.Post("/cancel", controllers.SubscriptionCancel(p.SubscriptionsService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.AccountRoleAdmin))
			r.Get("/ping", controllers.AdminPing())
			r.Post("/accounts/{accountId}/credit", controllers.AdminAdjustBalance(p.AccountsService, logg))
		})
	})

	return r
}
