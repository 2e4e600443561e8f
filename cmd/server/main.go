package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskflow/internal/config"
	"taskflow/internal/httpserver"
	"taskflow/internal/notify"
	"taskflow/internal/repository"
	"taskflow/internal/service"
	"taskflow/pkg/circuitbreaker"
	"taskflow/pkg/db"
	"taskflow/pkg/lock"
	"taskflow/pkg/logger"
	"taskflow/pkg/mq"
	"taskflow/pkg/otel"
	"taskflow/pkg/outbox"
	"taskflow/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting taskflow...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("lock_backend", cfg.Workflow.LockBackend),
	)

	shutdownOTel, err := otel.Init(cfg.OTel, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownOTel()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	if err := db.Migrate(dbConn, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Locks
	var locker lock.Locker
	switch cfg.Workflow.LockBackend {
	case "local":
		locker = lock.NewLocalLocker()
	default:
		rdb, err := redis.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to init Redis", zap.Error(err))
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, cfg.Workflow.LockTTL, cfg.Workflow.LockWait, log)
	}

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Outbox
	outboxRepo := outbox.NewRepository(dbConn)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(cfg.Outbox.Interval).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Start(ctx)

	// Notifications
	sink := notify.NewOutboxSink(dbConn, repository.NewNotificationRepository(log), outboxRepo, log)
	notifier := notify.NewGuarded(sink, circuitbreaker.New(cfg.Notifier), log)

	// Workflow engine
	store := repository.NewPostgresStore(dbConn, log)
	engine := service.NewEngine(store, locker, notifier, service.SystemClock{}, service.Options{
		NumberingRetries:  cfg.Workflow.NumberingRetries,
		DefaultLabelColor: cfg.Workflow.DefaultLabelColor,
		MostUsedLimit:     cfg.Workflow.MostUsedLimit,
		UpcomingDays:      cfg.Workflow.UpcomingDays,
	}, log)
	log.Info("Workflow engine initialized",
		zap.Int("numbering_retries", cfg.Workflow.NumberingRetries),
		zap.Int("upcoming_days", cfg.Workflow.UpcomingDays),
	)

	// HTTP Server (health, readiness, metrics)
	router := httpserver.NewRouter(log, dbConn, publisher, engine)
	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("taskflow is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down taskflow gracefully...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("taskflow shutdown complete")
}
