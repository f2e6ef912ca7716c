package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/samparkhq/sampark/cmd/mainconfig"
	"github.com/samparkhq/sampark/internal/api/router"
	"github.com/samparkhq/sampark/internal/campaigns"
	appconfig "github.com/samparkhq/sampark/internal/config"
	"github.com/samparkhq/sampark/internal/observability/metrics"
	"github.com/samparkhq/sampark/internal/observability/stats"
	"github.com/samparkhq/sampark/internal/templates"
	"github.com/samparkhq/sampark/pkg/logging"
	"github.com/samparkhq/sampark/pkg/template"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sampark API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.NewTemplateMetrics(registry)

	templateStore := templates.NewStore(pool)
	astCache := template.NewCache(cfg.TemplateCacheSize)

	var recordCache *templates.RecordCache
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, template records read from postgres", "error", err)
		} else {
			recordCache = templates.NewRecordCache(redisClient, templateStore, cfg.TemplateTTL, logger)
		}
		cancel()
	}

	var templateHandler *templates.Handler
	if recordCache != nil {
		templateHandler = templates.NewHandler(templateStore, recordCache, astCache, engineMetrics, logger).
			WithInvalidator(recordCache.Invalidate)
	} else {
		templateHandler = templates.NewHandler(templateStore, nil, astCache, engineMetrics, logger)
	}

	var campaignHandler *campaigns.Handler
	if cfg.BroadcastQueueURL != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		queue := campaigns.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.BroadcastQueueURL)
		jobStore := campaigns.NewJobStore(dynamodb.NewFromConfig(awsCfg), cfg.BroadcastJobsTable, logger)
		campaignHandler = campaigns.NewHandler(campaigns.NewRepository(sqlDB), queue, jobStore, engineMetrics, logger)
	} else {
		logger.Warn("broadcasts disabled (BROADCAST_QUEUE_URL not set)")
	}

	r := router.New(&router.Config{
		Logger:             logger,
		TemplateHandler:    templateHandler,
		CampaignHandler:    campaignHandler,
		StatsHandler:       stats.NewHandler(registry, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
