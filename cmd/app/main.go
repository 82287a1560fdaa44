package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain/ports/adapter"
	pg "subscription-billing/internal/infra/db/postgres"
	"subscription-billing/internal/infra/logging"
	"subscription-billing/internal/infra/metrics"
	"subscription-billing/internal/infra/notify"
	"subscription-billing/internal/infra/payment"
	red "subscription-billing/internal/infra/redis"
	"subscription-billing/internal/infra/sched"
	"subscription-billing/internal/infra/web"
	"subscription-billing/internal/infra/worker"
	"subscription-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway unless configured)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	queue := red.NewDelayedQueue(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	planRepo := pg.NewPlanRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	customerRepo := pg.NewCustomerRepo(pool)
	settingsRepo := pg.NewSettingsRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Adapters ----
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev && cfg.Gateway.SecretKey == "" {
		gateway = payment.NewNoopGateway()
		logger.Warn().Msg("no gateway credentials; using noop gateway")
	} else {
		gateway = payment.NewHTTPGateway(&cfg.Gateway)
	}

	var notifier adapter.Notifier
	if cfg.Notifier.URL == "" {
		notifier = notify.NewNoopNotifier()
	} else {
		notifier = notify.NewHTTPNotifier(&cfg.Notifier)
	}

	// ---- Use cases ----
	billingUC := usecase.NewBillingUseCase(subRepo, planRepo, invoiceRepo, customerRepo, queue, notifier, txManager, logger)
	planChangeUC := usecase.NewPlanChangeUseCase(subRepo, planRepo, invoiceRepo, txManager, logger)
	dunningUC := usecase.NewDunningUseCase(
		subRepo, invoiceRepo, paymentRepo, customerRepo, settingsRepo,
		gateway, queue, notifier, txManager,
		usecase.DunningOptions{
			Currency:            cfg.Gateway.Currency,
			DefaultMaxRetries:   cfg.Billing.MaxRetries,
			DefaultDelayMinutes: cfg.Billing.RetryDelayMinutes,
			ResetRetryOnSuccess: cfg.Billing.ResetRetryOnSuccessOrDefault(),
		},
		logger,
	)

	// ---- Workers ----
	pool2 := worker.NewPool(cfg.Billing.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	consumer := worker.NewConsumer(queue, locker, pool2, billingUC, dunningUC, logger)
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("job consumer exited")
		}
	}()

	// ---- Billing sweeper ----
	sweeper := sched.NewBillingSweeper(cfg.Billing.SweepCron, billingUC, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("billing sweeper")
	}
	defer sweeper.Stop()

	// ---- HTTP server ----
	server := web.NewServer(gateway, dunningUC, planChangeUC, planRepo, subRepo, logger)
	go func() {
		if err := server.Start(cfg.Server.Port); err != nil {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
