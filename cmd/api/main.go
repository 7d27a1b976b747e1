package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/healthythako/booking-service/internal/auth"
	"github.com/healthythako/booking-service/internal/bootstrap"
	"github.com/healthythako/booking-service/internal/config"
	gateway "github.com/healthythako/booking-service/internal/gateways"
	"github.com/healthythako/booking-service/internal/handlers"
	"github.com/healthythako/booking-service/internal/queue"
	"github.com/healthythako/booking-service/internal/repository"
	"github.com/healthythako/booking-service/internal/services"
	xhttp "github.com/healthythako/booking-service/pkg/http"
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
	bootstrap.ConfigureLogger(cfg, "api")
	defer logger.Sync()
	logger.Info("starting api", "version", version, "commit", commit, "date", date)

	if err = cfg.Validate(); err != nil {
		// readiness reports the same problem; checkout answers 500 until fixed
		logger.Warn("configuration incomplete", "error", err)
	}
	rate, err := cfg.CommissionRate()
	if err != nil {
		logger.Error("invalid commission rate", "error", err)
		return
	}

	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.TimeoutMiddleware(cfg.GatewayTimeout + 5*time.Second))
	s.Use(xhttp.CompressMiddleware(6))
	s.Router = xhttp.CreateDefaultRouter()

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

	q, err := queue.NewQueue(redisAdap, bootstrap.QueueConfig(cfg))
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	bookingRepo := repository.NewBookingRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	gw := gateway.NewClient(gateway.Config{
		BaseURL:    cfg.GatewayBaseUrl,
		APIKey:     cfg.GatewayApiKey,
		WebhookURL: cfg.PaymentWebhookUrl,
		Timeout:    cfg.GatewayTimeout,
	})

	// services
	notificationService := services.NewNotificationService(notificationRepo, q)
	bookingService := services.NewBookingService(bookingRepo, reviewRepo, notificationService,
		services.NewBookingCache(redisAdap, cfg.CacheTTL))
	paymentService := services.NewPaymentService(transactionRepo, bookingRepo, gw, notificationService, services.PaymentConfig{
		Currency:       cfg.PaymentCurrency,
		CommissionRate: rate,
		URLs: gateway.URLConfig{
			AppBaseURL:     cfg.AppBaseUrl,
			SuccessPath:    cfg.PaymentSuccessPath,
			CancelPath:     cfg.PaymentCancelPath,
			DeepLinkScheme: cfg.DeepLinkScheme,
		},
	})
	redirectValidator := services.NewRedirectValidator(bookingRepo, transactionRepo)
	authenticator := auth.New(cfg.JwtSecret, cfg.AppName)

	// v1 handlers
	g := s.Router.Group(cfg.HttpBasePath)
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(
		handlers.HealthCheck{Name: "config", Check: func(context.Context) error { return cfg.Validate() }},
		handlers.HealthCheck{Name: "postgres", Check: db.Ping},
		handlers.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return redisAdap.Client().Ping(ctx).Err() }},
	).Report("gateway", func() any { return gw.Stats() }))
	handlers.RegisterBookingRoutes(g, handlers.NewBookingHandler(bookingService), authenticator)
	handlers.RegisterPaymentRoutes(g, handlers.NewPaymentHandler(paymentService, redirectValidator), authenticator,
		xhttp.NewIPRateLimiter(cfg.CheckoutRatePerMinute, cfg.CheckoutRatePerMinute))
	handlers.RegisterNotificationRoutes(g, handlers.NewNotificationHandler(notificationService), authenticator)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	s.Shutdown()
}
