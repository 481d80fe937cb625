package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"catchup-feed/internal/common/pagination"
	pgRepo "catchup-feed/internal/infra/adapter/persistence/postgres"
	"catchup-feed/internal/infra/cache"
	"catchup-feed/internal/infra/db"
	"catchup-feed/internal/infra/scraper"

	artUC "catchup-feed/internal/usecase/article"
	"catchup-feed/internal/usecase/cachemanager"
	"catchup-feed/internal/usecase/collector"
	"catchup-feed/internal/usecase/dedup"
	"catchup-feed/internal/usecase/processor"
	"catchup-feed/internal/usecase/scheduler"
	srcUC "catchup-feed/internal/usecase/source"

	hhttp "catchup-feed/internal/handler/http"
	harticle "catchup-feed/internal/handler/http/article"
	hcache "catchup-feed/internal/handler/http/cache"
	"catchup-feed/internal/handler/http/requestid"
	hsrc "catchup-feed/internal/handler/http/source"
	hstats "catchup-feed/internal/handler/http/stats"
	htasks "catchup-feed/internal/handler/http/tasks"
)

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	redisClient := initRedis(logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed to close redis client", slog.Any("error", err))
		}
	}()

	version := getVersion()
	handler, schedulerSvc := setupServer(logger, database, redisClient, version)
	runServer(logger, handler, schedulerSvc, version)
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

// initDatabase opens the database connection and runs migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// setupServer configures and returns the HTTP handler with all routes and
// middleware, plus the scheduler service backing the /tasks and /cache
// on-demand routes. The scheduler's periodic cron loop is never started
// here — only the worker process runs the cadence, so the API process
// only ever drives on-demand job runs through it.
func setupServer(logger *slog.Logger, database *sql.DB, redisClient *redis.Client, version string) (http.Handler, *scheduler.Service) {
	sourceRepo := pgRepo.NewSourceRepo(database)
	articleRepo := pgRepo.NewArticleRepo(database)

	srcSvc := srcUC.Service{Repo: sourceRepo}
	artSvc := artUC.Service{Repo: articleRepo}

	kv := cache.NewRedisAdapter(redisClient, logger)
	cacheManager := cachemanager.New(kv, articleRepo, sourceRepo, logger)

	fetcher := scraper.NewRSSFetcher(&http.Client{Timeout: 30 * time.Second})
	collectorSvc := collector.NewService(sourceRepo, articleRepo, fetcher, cacheManager, logger)
	dedupSvc := dedup.NewService(articleRepo, logger)
	processorSvc := processor.NewService(articleRepo, dedupSvc, processor.LoadKeywordTables(os.Getenv("KEYWORD_TABLES_PATH")), logger)
	schedulerSvc := scheduler.NewService(collectorSvc, processorSvc, dedupSvc, cacheManager, sourceRepo, scheduler.DefaultConfig(), logger)

	// 検索エンドポイントは1分間に100リクエストまでに制限する
	searchRateLimiter := hhttp.NewRateLimiter(100, 1*time.Minute)

	mux := http.NewServeMux()
	mux.Handle("/health", &hhttp.HealthHandler{DB: database, Version: version})
	mux.Handle("/ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("/live", &hhttp.LiveHandler{})
	mux.Handle("/metrics", hhttp.MetricsHandler())

	paginationCfg := pagination.LoadFromEnv()
	hsrc.Register(mux, srcSvc, searchRateLimiter)
	harticle.Register(mux, artSvc, paginationCfg, logger, searchRateLimiter)
	harticle.RegisterCached(mux, artSvc, cacheManager)
	hstats.Register(mux, articleRepo)
	hcache.Register(mux, cacheManager, schedulerSvc, sourceRepo)
	htasks.Register(mux, schedulerSvc)

	return applyMiddleware(logger, mux), schedulerSvc
}

// applyMiddleware wraps the handler with the shared middleware chain.
// Order (outermost to innermost): request ID, recovery, logging, body size
// limit, metrics.
func applyMiddleware(logger *slog.Logger, handler http.Handler) http.Handler {
	chain := handler
	chain = hhttp.MetricsMiddleware(chain)
	chain = hhttp.LimitRequestBody(1 << 20)(chain) // 1MB
	chain = hhttp.Logging(logger)(chain)
	chain = hhttp.Recover(logger)(chain)
	chain = requestid.Middleware(chain)
	return chain
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, handler http.Handler, schedulerSvc *scheduler.Service, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting", slog.String("addr", ":8080"), slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	schedulerSvc.Stop(shutdownCtx)
	logger.Info("server stopped")
}
