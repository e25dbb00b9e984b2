package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hearthstay/hearthstay-backend/api/routes"
	"github.com/hearthstay/hearthstay-backend/internal/bookings"
	"github.com/hearthstay/hearthstay-backend/internal/checkout"
	"github.com/hearthstay/hearthstay-backend/internal/customers"
	"github.com/hearthstay/hearthstay-backend/internal/paymentmethods"
	"github.com/hearthstay/hearthstay-backend/internal/payments"
	"github.com/hearthstay/hearthstay-backend/internal/properties"
	"github.com/hearthstay/hearthstay-backend/internal/subscriptions"
	"github.com/hearthstay/hearthstay-backend/internal/users"
	stripewebhook "github.com/hearthstay/hearthstay-backend/internal/webhooks/stripe"
	"github.com/hearthstay/hearthstay-backend/pkg/config"
	"github.com/hearthstay/hearthstay-backend/pkg/db"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
	"github.com/hearthstay/hearthstay-backend/pkg/metrics"
	"github.com/hearthstay/hearthstay-backend/pkg/migrate"
	"github.com/hearthstay/hearthstay-backend/pkg/outbox"
	"github.com/hearthstay/hearthstay-backend/pkg/redis"
	"github.com/hearthstay/hearthstay-backend/pkg/stripe"
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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	bookingsRepo := bookings.NewRepository(dbClient.DB())
	propertiesRepo := properties.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	subscriptionsRepo := subscriptions.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	customerResolver, err := customers.NewResolver(customers.ResolverParams{
		UsersRepo:    usersRepo,
		StripeClient: customers.NewStripeClient(stripeClient),
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create customer resolver", err)
		os.Exit(1)
	}

	propertyService, err := properties.NewService(propertiesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create property service", err)
		os.Exit(1)
	}

	bookingService, err := bookings.NewService(bookingsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		TransactionRunner: dbClient,
		BookingsRepo:      bookingsRepo,
		Properties:        propertyService,
		Customers:         customerResolver,
		StripeClient:      checkout.NewStripeClient(stripeClient),
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	paymentMethodService, err := paymentmethods.NewService(paymentmethods.ServiceParams{
		Customers:    customerResolver,
		StripeClient: paymentmethods.NewStripeClient(stripeClient),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment method service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:              subscriptionsRepo,
		Customers:         customerResolver,
		StripeClient:      subscriptions.NewStripeClient(stripeClient),
		DefaultPriceID:    cfg.Stripe.PremiumHostPriceID,
		TransactionRunner: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		BookingsRepo:      bookingsRepo,
		PaymentsRepo:      paymentsRepo,
		SubscriptionsRepo: subscriptionsRepo,
		UsersRepo:         usersRepo,
		StripeClient:      subscriptions.NewStripeClient(stripeClient),
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Metrics:           metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "stripe:webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			propertyService,
			bookingService,
			checkoutService,
			paymentMethodService,
			subscriptionService,
			stripeClient,
			webhookService,
			webhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
