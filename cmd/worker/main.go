package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"launchpadResume/internal/config"
	"launchpadResume/internal/database"
	"launchpadResume/internal/metrics"
	"launchpadResume/internal/payment"
	"launchpadResume/internal/storage"
	"launchpadResume/internal/submission"
	"launchpadResume/internal/tasks"
	"launchpadResume/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready for worker")

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	// worker 只写快照键，不做支付校验。
	submissions := submission.NewService(db, payment.NewTrustVerifier(logger), cfg.Review.Price)

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password}, asynq.Config{
		Concurrency: 10,
		Logger:      newAsynqLogger(logger),
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeSubmissionSnapshot, worker.NewSnapshotTaskHandler(db, storageClient, submissions, logger))
	mux.Handle(tasks.TypeSubmissionNotify, worker.NewNotifyTaskHandler(redisClient, logger))

	logger.Info("worker service started", slog.String("redis_addr", cfg.Redis.Addr()))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
