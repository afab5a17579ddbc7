package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/vitora-backend/api/controllers"
	"github.com/angelmondragon/vitora-backend/api/routes"
	"github.com/angelmondragon/vitora-backend/internal/checkout"
	"github.com/angelmondragon/vitora-backend/internal/customers"
	"github.com/angelmondragon/vitora-backend/internal/notifications"
	"github.com/angelmondragon/vitora-backend/internal/orders"
	"github.com/angelmondragon/vitora-backend/internal/payments"
	"github.com/angelmondragon/vitora-backend/internal/transactions"
	wompiwebhook "github.com/angelmondragon/vitora-backend/internal/webhooks/wompi"
	"github.com/angelmondragon/vitora-backend/pkg/config"
	"github.com/angelmondragon/vitora-backend/pkg/db"
	"github.com/angelmondragon/vitora-backend/pkg/fasttrack"
	"github.com/angelmondragon/vitora-backend/pkg/idempotency"
	"github.com/angelmondragon/vitora-backend/pkg/instance"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
	"github.com/angelmondragon/vitora-backend/pkg/mailer"
	"github.com/angelmondragon/vitora-backend/pkg/metrics"
	"github.com/angelmondragon/vitora-backend/pkg/migrate"
	"github.com/angelmondragon/vitora-backend/pkg/outbox"
	"github.com/angelmondragon/vitora-backend/pkg/redis"
	"github.com/angelmondragon/vitora-backend/pkg/wompi"
)

// Wompi retries an event for up to three days.
const webhookDedupeTTL = 72 * time.Hour

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

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	transactionsRepo := transactions.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	customersRepo := customers.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	notifier := buildNotifier(cfg, logg, redisClient, ordersRepo, transactionsRepo, paymentMetrics)

	reconciler, err := payments.NewReconciler(payments.ReconcilerParams{
		DB:           dbClient,
		Transactions: transactionsRepo,
		Orders:       ordersRepo,
		Outbox:       outboxService,
		Notifier:     notifier,
		Logger:       logg,
		Metrics:      paymentMetrics,
	})
	mustBuild(logg, "reconciler", err)

	wompiClient, err := wompi.NewClient(
		cfg.Wompi.PrivateKey,
		wompi.WithBaseURL(cfg.Wompi.BaseURL),
		wompi.WithTimeout(cfg.Gateway.RequestTimeout),
	)
	mustBuild(logg, "wompi client", err)

	statusChecker, err := payments.NewStatusChecker(payments.StatusCheckerParams{
		Transactions: transactionsRepo,
		Orders:       ordersRepo,
		Gateway:      wompiClient,
		Reconciler:   reconciler,
		Logger:       logg,
	})
	mustBuild(logg, "status checker", err)

	webhookGuard, err := idempotency.NewManager(redisClient, webhookDedupeTTL)
	mustBuild(logg, "webhook guard", err)

	webhookService, err := wompiwebhook.NewService(wompiwebhook.ServiceParams{
		Reconciler:   reconciler,
		EventsSecret: cfg.Wompi.EventsSecret,
		Guard:        webhookGuard,
		Logger:       logg,
		Metrics:      paymentMetrics,
	})
	mustBuild(logg, "wompi webhook service", err)

	gateway, err := buildGateway(cfg)
	mustBuild(logg, "checkout gateway", err)

	customerService, err := customers.NewService(customersRepo)
	mustBuild(logg, "customers service", err)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		DB:            dbClient,
		Transactions:  transactionsRepo,
		Orders:        ordersRepo,
		Customers:     customerService,
		Gateway:       gateway,
		Currency:      cfg.Wompi.Currency,
		ReferenceBase: cfg.Gateway.ReferenceBase,
		Logger:        logg,
	})
	mustBuild(logg, "checkout service", err)

	ordersService, err := orders.NewService(ordersRepo, customersRepo, transactionsRepo)
	mustBuild(logg, "orders service", err)

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"gateway":  gateway.Name(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:  cfg,
			Logger:  logg,
			Store:   redisClient,
			Pingers: map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
			Metrics: promhttp.Handler(),

			Checkout:      checkoutService,
			WompiWebhook:  webhookService,
			StatusChecker: statusChecker,
			Transactions:  transactionsRepo,
			Orders:        ordersService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
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
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown failed", err)
	}
	logg.Info(ctx, "api server shutting down gracefully")
}

// buildGateway picks the integration that creates new checkout intents.
// Webhooks and polling stay Wompi-only either way.
func buildGateway(cfg *config.Config) (checkout.Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Gateway.Checkout)) {
	case config.GatewayFastTrack:
		client, err := fasttrack.NewClient(cfg.FastTrack.BaseURL, cfg.FastTrack.APIKey, fasttrack.WithTimeout(cfg.Gateway.RequestTimeout))
		if err != nil {
			return nil, err
		}
		return checkout.NewFastTrackGateway(client, cfg.FastTrack.IntegritySecret, cfg.FastTrack.RedirectURL, cfg.Gateway.RequestTimeout)
	default:
		builder := wompi.NewCheckoutBuilder(cfg.Wompi.CheckoutURL, cfg.Wompi.PublicKey, cfg.Wompi.IntegritySecret)
		return checkout.NewWompiGateway(builder, cfg.Wompi.RedirectURL, 0)
	}
}

// buildNotifier returns nil when SendGrid is not configured. Payments still
// reconcile and the cron sweep sends the emails once a key is set.
func buildNotifier(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	ordersRepo *orders.Repository,
	transactionsRepo *transactions.Repository,
	paymentMetrics *metrics.PaymentMetrics,
) payments.Notifier {
	sender, err := mailer.NewSendgridSender(cfg.Sendgrid)
	if err != nil {
		logg.Warn(logg.WithField(context.Background(), "reason", err.Error()), "confirmation emails disabled")
		return nil
	}
	composer := notifications.NewComposer(cfg.Sendgrid.BrandName, cfg.Sendgrid.WebsiteURL)
	emailSender, err := notifications.NewEmailSender(sender, composer, cfg.Sendgrid.AdminEmail)
	mustBuild(logg, "email sender", err)

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Orders:       ordersRepo,
		Transactions: transactionsRepo,
		Sender:       emailSender,
		Claims:       redisClient,
		Logger:       logg,
		Metrics:      paymentMetrics,
	})
	mustBuild(logg, "confirmation dispatcher", err)
	return dispatcher
}

func mustBuild(logg *logger.Logger, component string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(context.Background(), "component", component), "failed to build component", err)
	os.Exit(1)
}
