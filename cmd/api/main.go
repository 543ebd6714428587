package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/timebankhq/timebank-backend/api/routes"
	"github.com/timebankhq/timebank-backend/internal/accounts"
	"github.com/timebankhq/timebank-backend/internal/auth"
	"github.com/timebankhq/timebank-backend/internal/catalog"
	"github.com/timebankhq/timebank-backend/internal/ledger"
	"github.com/timebankhq/timebank-backend/internal/notifications"
	"github.com/timebankhq/timebank-backend/internal/subscriptions"
	stripewebhook "github.com/timebankhq/timebank-backend/internal/webhooks/stripe"
	"github.com/timebankhq/timebank-backend/pkg/auth/session"
	"github.com/timebankhq/timebank-backend/pkg/config"
	"github.com/timebankhq/timebank-backend/pkg/db"
	"github.com/timebankhq/timebank-backend/pkg/logger"
	"github.com/timebankhq/timebank-backend/pkg/metrics"
	"github.com/timebankhq/timebank-backend/pkg/migrate"
	"github.com/timebankhq/timebank-backend/pkg/outbox"
	"github.com/timebankhq/timebank-backend/pkg/redis"
	pkgstripe "github.com/timebankhq/timebank-backend/pkg/stripe"
)

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
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	accountsRepo := accounts.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())

	accountsService, err := accounts.NewService(accountsRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(
		ledger.NewRepository(dbClient.DB()),
		accountsRepo,
		catalogRepo,
		dbClient,
		outboxService,
		logg,
		metrics.NewLedgerMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		AccountsRepo:   accountsRepo,
		TxRunner:       dbClient,
		Outbox:         outboxService,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		LedgerConfig:   cfg.Ledger,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(
		notifications.NewRepository(dbClient.DB()),
		notifications.NewDeviceRepository(dbClient.DB()),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	subscriptionsRepo := subscriptions.NewRepository(dbClient.DB())
	subscriptionsService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:              subscriptionsRepo,
		StripeClient:      subscriptions.NewStripeClient(stripeClient),
		DefaultPriceID:    cfg.Stripe.SubscriptionPriceID,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		SubscriptionsRepo: subscriptionsRepo,
		StripeClient:      subscriptions.NewStripeClient(stripeClient),
		TransactionRunner: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	stripeWebhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Outbox.IdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:               cfg,
			Logger:               logg,
			Redis:                redisClient,
			SessionVerifier:      sessionManager,
			AuthService:          authService,
			AccountsService:      accountsService,
			CatalogService:       catalogService,
			LedgerService:        ledgerService,
			NotificationsService: notificationsService,
			SubscriptionsService: subscriptionsService,
			StripeClient:         stripeClient,
			StripeWebhookService: stripeWebhookService,
			StripeWebhookGuard:   stripeWebhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
