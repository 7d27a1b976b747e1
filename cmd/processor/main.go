package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/healthythako/booking-service/internal/bootstrap"
	"github.com/healthythako/booking-service/internal/config"
	gateway "github.com/healthythako/booking-service/internal/gateways"
	"github.com/healthythako/booking-service/internal/processor"
	"github.com/healthythako/booking-service/internal/queue"
	"github.com/healthythako/booking-service/internal/repository"
	"github.com/healthythako/booking-service/internal/services"
	"github.com/healthythako/booking-service/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := config.Load(bootstrap.EnvPath(os.Args))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	bootstrap.ConfigureLogger(cfg, "processor")
	defer logger.Sync()
	logger.Info("starting processor", "version", version, "commit", commit, "date", date)

	db, err := bootstrap.OpenDB(cfg)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}
	redisAdap, err := bootstrap.OpenRedis(cfg, "default")
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}
	if err = bootstrap.StartMetrics(cfg); err != nil {
		logger.Error("failed to start metrics", "error", err)
		return
	}
	rate, err := cfg.CommissionRate()
	if err != nil {
		logger.Error("invalid commission rate", "error", err)
		return
	}

	q, err := queue.NewQueue(redisAdap, bootstrap.QueueConfig(cfg))
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	bookingRepo := repository.NewBookingRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := services.NewNotificationService(notificationRepo, q)
	paymentService := services.NewPaymentService(transactionRepo, bookingRepo, gateway.NewClient(gateway.Config{
		BaseURL: cfg.GatewayBaseUrl,
		APIKey:  cfg.GatewayApiKey,
		Timeout: cfg.GatewayTimeout,
	}), notificationService, services.PaymentConfig{Currency: cfg.PaymentCurrency, CommissionRate: rate})

	idempotencyService := processor.NewIdempotencyService(redisAdap, processor.DefaultIdempotencyConfig())

	service := processor.NewProcessorService(redisAdap, processor.Config{
		Queue:      bootstrap.QueueConfig(cfg),
		Consumers:  cfg.QueueConsumers,
		Workers:    cfg.WorkerCount,
		BufferSize: cfg.WorkerBufferSize,
	})
	service.RegisterProcessor(processor.NewPushProcessor(redisAdap, idempotencyService))

	scheduler, err := processor.NewScheduler(
		processor.Job{
			Name:    "outbox-relay",
			Spec:    cfg.OutboxRelaySchedule,
			Timeout: 30 * time.Second,
			Run: func(ctx context.Context) error {
				n, err := notificationService.RelayOutbox(ctx, cfg.OutboxBatchSize)
				if n > 0 {
					logger.Info("outbox relayed", "count", n)
				}
				return err
			},
		},
		processor.Job{
			Name:    "reconcile-provisional-transactions",
			Spec:    cfg.ReconcileSchedule,
			Timeout: 2 * time.Minute,
			Run: func(ctx context.Context) error {
				n, err := paymentService.ReconcileStale(ctx, cfg.ProvisionalTxnTTL)
				if n > 0 {
					logger.Info("provisional transactions reconciled", "count", n)
				}
				return err
			},
		},
	)
	if err != nil {
		logger.Error("failed to build scheduler", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if err = service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		return
	}
	scheduler.Start()

	<-c
	scheduler.Stop()
	service.Stop()
}
