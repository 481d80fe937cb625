package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	pgRepo "catchup-feed/internal/infra/adapter/persistence/postgres"
	"catchup-feed/internal/infra/cache"
	"catchup-feed/internal/infra/db"
	"catchup-feed/internal/infra/scraper"
	workerPkg "catchup-feed/internal/infra/worker"
	"catchup-feed/internal/usecase/cachemanager"
	"catchup-feed/internal/usecase/collector"
	"catchup-feed/internal/usecase/dedup"
	"catchup-feed/internal/usecase/processor"
	"catchup-feed/internal/usecase/scheduler"
)

// waitForMigrations blocks until the sources table is queryable, retrying
// every 3 seconds — the worker and API processes race to apply migrations
// on first boot, so either may see an empty database briefly.
func waitForMigrations(logger *slog.Logger, database *sql.DB) {
	const probe = "SELECT 1 FROM sources LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := database.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, _ := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.Int("health_port", workerConfig.HealthPort))

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	startMetricsServer(ctx, logger)

	redisClient := initRedis(logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed to close redis client", slog.Any("error", err))
		}
	}()

	sourceRepo := pgRepo.NewSourceRepo(database)
	articleRepo := pgRepo.NewArticleRepo(database)
	kv := cache.NewRedisAdapter(redisClient, logger)
	cacheManager := cachemanager.New(kv, articleRepo, sourceRepo, logger)

	fetcher := scraper.NewRSSFetcher(&http.Client{Timeout: 30 * time.Second})
	collectorSvc := collector.NewService(sourceRepo, articleRepo, fetcher, cacheManager, logger)
	dedupSvc := dedup.NewService(articleRepo, logger)
	processorSvc := processor.NewService(articleRepo, dedupSvc, processor.LoadKeywordTables(os.Getenv("KEYWORD_TABLES_PATH")), logger)

	schedulerSvc := scheduler.NewService(collectorSvc, processorSvc, dedupSvc, cacheManager, sourceRepo, scheduler.DefaultConfig(), logger)
	if err := schedulerSvc.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}

	cacheManager.WarmAll(ctx)
	healthServer.SetReady(true)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down worker...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	schedulerSvc.Stop(stopCtx)
	cancel()
	logger.Info("worker stopped")
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and waits for migrations to complete.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	return database
}

// initRedis opens the cache engine connection. REDIS_URL defaults to the
// local standalone instance used by docker-compose in development.
func initRedis(logger *slog.Logger) *redis.Client {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379"
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn("invalid REDIS_URL, falling back to default address", slog.Any("error", err))
		opts = &redis.Options{Addr: "localhost:6379"}
	}
	return redis.NewClient(opts)
}
