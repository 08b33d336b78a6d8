package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"launchpadResume/internal/admin"
	"launchpadResume/internal/api"
	"launchpadResume/internal/auth"
	"launchpadResume/internal/cache"
	"launchpadResume/internal/config"
	"launchpadResume/internal/database"
	"launchpadResume/internal/payment"
	"launchpadResume/internal/resume"
	"launchpadResume/internal/storage"
	"launchpadResume/internal/submission"
	"launchpadResume/internal/tasks"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("api bootstrapped",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
		slog.String("payment_mode", cfg.Payment.Mode),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	seeded, err := database.SeedExperts(ctx, db)
	if err != nil {
		log.Fatalf("seed experts: %v", err)
	}
	logger.Info("database ready", slog.Int("experts_seeded", seeded))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// 统计缓存与登录限流依赖 Redis，启动时不可用只告警。
		logger.Warn("redis unreachable at startup", slog.Any("error", err))
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	tokens, err := auth.LoadTokenService(cfg.Auth.PrivateKeyPath, cfg.Auth.PublicKeyPath, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		log.Fatalf("load jwt keys: %v", err)
	}

	verifier, err := payment.New(cfg.Payment, logger)
	if err != nil {
		log.Fatalf("init payment verifier: %v", err)
	}

	var scanner api.VirusScanner
	if cfg.Clamd.Addr != "" {
		scanner = api.ClamdScanner{Addr: cfg.Clamd.Addr}
		logger.Info("upload scanning enabled", slog.String("clamd_addr", cfg.Clamd.Addr))
	}

	statsCache := cache.NewRedis(redisClient, cfg.Redis.StatsTTL, logger)

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, cfg, api.Dependencies{
		DB:          db,
		Tokens:      tokens,
		Redis:       redisClient,
		Subscriber:  redisClient,
		Resumes:     resume.NewStore(db),
		Submissions: submission.NewService(db, verifier, cfg.Review.Price),
		Admin:       admin.NewService(db, statsCache, logger),
		Dispatcher:  tasks.NewDispatcher(asynqClient, logger),
		Objects:     storageClient,
		Scanner:     scanner,
		Logger:      logger,
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
