package broadcastworker

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/samparkhq/sampark/cmd/mainconfig"
	"github.com/samparkhq/sampark/internal/campaigns"
	"github.com/samparkhq/sampark/internal/config"
	"github.com/samparkhq/sampark/internal/contacts"
	"github.com/samparkhq/sampark/internal/delivery"
	"github.com/samparkhq/sampark/internal/observability/metrics"
	"github.com/samparkhq/sampark/internal/templates"
	"github.com/samparkhq/sampark/pkg/logging"
	"github.com/samparkhq/sampark/pkg/template"
)

// Run starts the broadcast worker and blocks until ctx is canceled.
func Run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	if cfg == nil {
		return fmt.Errorf("broadcast worker requires config")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("broadcast worker requires DATABASE_URL")
	}
	if cfg.BroadcastQueueURL == "" {
		return fmt.Errorf("broadcast worker requires BROADCAST_QUEUE_URL")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("worker failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	awsConfig, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	queue := campaigns.NewSQSQueue(sqs.NewFromConfig(awsConfig), cfg.BroadcastQueueURL)
	jobStore := campaigns.NewJobStore(dynamodb.NewFromConfig(awsConfig), cfg.BroadcastJobsTable, logger)

	templateStore := templates.NewStore(pool)
	var records templateGetter = templateStore
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
			records = templates.NewRecordCache(redisClient, templateStore, cfg.TemplateTTL, logger)
		}
		cancel()
	}

	var sender delivery.Sender
	if cfg.SMSProvider == "sparrow" && cfg.SparrowToken != "" {
		sender = delivery.NewSparrowSender(delivery.SparrowConfig{
			Token:    cfg.SparrowToken,
			From:     cfg.SparrowFrom,
			Endpoint: delivery.SparrowEndpoint(cfg.SparrowBaseURL),
			Timeout:  cfg.DeliveryTimeout,
		}, logger)
		logger.Info("sparrow sms sender initialized")
	} else {
		sender = delivery.NewLogSender(logger)
		logger.Warn("sms delivery disabled, using log sender", "provider", cfg.SMSProvider)
	}

	opts := []WorkerOption{WithWorkerCount(cfg.WorkerCount)}
	switch cfg.EmailProvider {
	case "sendgrid":
		if sg := delivery.NewSendGridSender(delivery.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sg != nil {
			opts = append(opts, WithEmailSender(sg))
			logger.Info("sendgrid email sender initialized")
		} else {
			logger.Warn("sendgrid selected but SENDGRID_API_KEY not set, survey broadcasts will fail")
		}
	case "ses":
		ses := delivery.NewSESSender(sesv2.NewFromConfig(awsConfig), delivery.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		opts = append(opts, WithEmailSender(ses))
		logger.Info("ses email sender initialized")
	default:
		logger.Warn("email delivery disabled, survey broadcasts will fail", "provider", cfg.EmailProvider)
	}

	worker := NewWorker(
		queue,
		campaigns.NewRepository(sqlDB),
		records,
		contacts.NewRepository(sqlDB),
		sender,
		jobStore,
		template.NewCache(cfg.TemplateCacheSize),
		metrics.NewTemplateMetrics(prometheus.DefaultRegisterer),
		logger,
		opts...,
	)

	worker.Start(ctx)

	<-ctx.Done()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("broadcast worker stopped")
	case <-doneCtx.Done():
		logger.Error("broadcast worker shutdown timed out", "error", doneCtx.Err())
	}

	return nil
}
