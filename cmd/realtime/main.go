package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/healthythako/booking-service/internal/auth"
	"github.com/healthythako/booking-service/internal/bootstrap"
	"github.com/healthythako/booking-service/internal/config"
	"github.com/healthythako/booking-service/internal/realtime"
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
	bootstrap.ConfigureLogger(cfg, "realtime")
	defer logger.Sync()
	logger.Info("starting realtime", "version", version, "commit", commit, "date", date)

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

	// read side only; nothing is dispatched from here
	notificationService := services.NewNotificationService(repository.NewNotificationRepository(db), nil)

	ginMode := gin.DebugMode
	if cfg.AppEnv != "dev" {
		ginMode = gin.ReleaseMode
	}
	hub := realtime.NewHub()
	server := realtime.NewServer(hub, auth.New(cfg.JwtSecret, cfg.AppName), notificationService, cfg.AllowedOrigins(), ginMode)
	subscriber := realtime.NewSubscriber(redisAdap, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := subscriber.Run(ctx); err != nil {
			logger.Error("notification subscriber stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.RealtimeListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("realtime server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("realtime server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	cancel()
	hub.Close()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("realtime server forced to shutdown", "error", err)
	}
}
