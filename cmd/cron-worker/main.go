package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/vitora-backend/internal/cron"
	"github.com/angelmondragon/vitora-backend/internal/notifications"
	"github.com/angelmondragon/vitora-backend/internal/orders"
	"github.com/angelmondragon/vitora-backend/internal/payments"
	"github.com/angelmondragon/vitora-backend/internal/transactions"
	"github.com/angelmondragon/vitora-backend/pkg/config"
	"github.com/angelmondragon/vitora-backend/pkg/db"
	"github.com/angelmondragon/vitora-backend/pkg/instance"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
	"github.com/angelmondragon/vitora-backend/pkg/mailer"
	"github.com/angelmondragon/vitora-backend/pkg/metrics"
	"github.com/angelmondragon/vitora-backend/pkg/migrate"
	"github.com/angelmondragon/vitora-backend/pkg/outbox"
	"github.com/angelmondragon/vitora-backend/pkg/redis"
	"github.com/angelmondragon/vitora-backend/pkg/wompi"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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
	outboxRepo := outbox.NewRepository(dbClient.DB())

	var jobs []cron.Job

	dispatcher, err := buildDispatcher(cfg, logg, redisClient, ordersRepo, transactionsRepo, paymentMetrics)
	if err != nil {
		logg.Warn(logg.WithField(context.Background(), "reason", err.Error()), "notification sweep disabled")
	}

	var notifier payments.Notifier
	if dispatcher != nil {
		notifier = dispatcher
		sweep, err := cron.NewNotificationSweepJob(cron.NotificationSweepJobParams{
			Logger:     logg,
			Dispatcher: dispatcher,
			BatchSize:  cfg.Cron.NotificationBatch,
		})
		mustBuild(logg, "notification sweep job", err)
		jobs = append(jobs, sweep)
	}

	reconciler, err := payments.NewReconciler(payments.ReconcilerParams{
		DB:           dbClient,
		Transactions: transactionsRepo,
		Orders:       ordersRepo,
		Outbox:       outbox.NewService(outboxRepo, logg),
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

	checker, err := payments.NewStatusChecker(payments.StatusCheckerParams{
		Transactions: transactionsRepo,
		Orders:       ordersRepo,
		Gateway:      wompiClient,
		Reconciler:   reconciler,
		Logger:       logg,
	})
	mustBuild(logg, "status checker", err)

	poll, err := cron.NewPendingTransactionPollJob(cron.PendingTransactionPollJobParams{
		Logger:       logg,
		Transactions: transactionsRepo,
		Poller:       checker,
		BatchSize:    cfg.Cron.PollBatch,
		StaleAfter:   cfg.Cron.PollStaleAfter,
		GiveUpAfter:  cfg.Cron.PollGiveUpAfter,
	})
	mustBuild(logg, "pending transaction poll job", err)

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetention,
	})
	mustBuild(logg, "outbox retention job", err)
	jobs = append(jobs, poll, retention)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+lockEnv(cfg.App.Env)), cfg.Cron.LockTTL)
	mustBuild(logg, "cron lock", err)

	registry := cron.NewRegistry(jobs...)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	mustBuild(logg, "cron service", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"jobs":        registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildDispatcher(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	ordersRepo *orders.Repository,
	transactionsRepo *transactions.Repository,
	paymentMetrics *metrics.PaymentMetrics,
) (*notifications.Dispatcher, error) {
	sender, err := mailer.NewSendgridSender(cfg.Sendgrid)
	if err != nil {
		return nil, err
	}
	emailSender, err := notifications.NewEmailSender(sender, notifications.NewComposer(cfg.Sendgrid.BrandName, cfg.Sendgrid.WebsiteURL), cfg.Sendgrid.AdminEmail)
	if err != nil {
		return nil, err
	}
	return notifications.NewDispatcher(notifications.DispatcherParams{
		Orders:       ordersRepo,
		Transactions: transactionsRepo,
		Sender:       emailSender,
		Claims:       redisClient,
		Logger:       logg,
		Metrics:      paymentMetrics,
	})
}

func lockEnv(env string) string {
	if env == "" {
		return "local"
	}
	return env
}

func mustBuild(logg *logger.Logger, component string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(context.Background(), "component", component), "failed to build component", err)
	os.Exit(1)
}
