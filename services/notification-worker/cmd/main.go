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
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-banking/services/notification-worker/configs"
	"github.com/nimeshabuddhika/resilient-banking/services/notification-worker/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// main initializes and runs the notification worker.
func main() {
	pkg.InitLogger("notification-worker")
	logger := pkg.Logger
	defer logger.Sync()

	cfg, err := configs.Load(logger)
	if err != nil {
		logger.Fatal("failed_to_load_config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, disconnect, err := database.New(ctx, logger, database.Config{
		PrimaryDSN: cfg.PrimaryDbAddr,
		MaxConns:   cfg.MaxDbCons,
		MinConns:   cfg.MinDbCons,
	})
	if err != nil {
		logger.Fatal("failed_to_init_db", zap.Error(err))
	}
	defer disconnect()

	notifications := services.NewNotificationService(logger, db, repositories.NewNotificationRepository(),
		services.NewFunctionDeliverer(logger, cfg.NotifyFunctionURL, cfg.NotifyTimeout, cfg.NotifyMaxElapsed))

	consumer, err := services.NewEventConsumer(ctx, services.EventConsumerConfig{
		Logger:  logger,
		Config:  cfg,
		Handler: notifications,
	})
	if err != nil {
		logger.Fatal("failed_to_create_event_consumer", zap.Error(err))
	}
	stopConsumer, err := consumer.Start(ctx)
	if err != nil {
		logger.Fatal("failed_to_start_event_consumer", zap.Error(err))
	}

	// metrics and liveness
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: r}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	osSignal := <-sigChan
	logger.Info("received_shutdown_signal", zap.String("signal", osSignal.String()))

	cancel()
	stopConsumer()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics_server_shutdown_error", zap.Error(err))
	}
	logger.Info("service_shutdown_completed")
}
