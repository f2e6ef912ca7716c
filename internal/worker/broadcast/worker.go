// Package broadcastworker consumes broadcast jobs from SQS and fans a
// campaign's template out to every matching contact.
package broadcastworker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/samparkhq/sampark/internal/campaigns"
	"github.com/samparkhq/sampark/internal/contacts"
	"github.com/samparkhq/sampark/internal/delivery"
	"github.com/samparkhq/sampark/internal/observability/metrics"
	"github.com/samparkhq/sampark/internal/templates"
	"github.com/samparkhq/sampark/pkg/logging"
	"github.com/samparkhq/sampark/pkg/template"
)

const (
	defaultWorkerCount       = 2
	defaultRenderConcurrency = 8
	defaultReceiveBatchSize  = 5
	defaultReceiveWaitSecs   = 10
	deleteTimeout            = 5 * time.Second
)

type campaignStore interface {
	Get(ctx context.Context, id uuid.UUID) (*campaigns.Campaign, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

type templateGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*templates.Template, error)
}

type contactLister interface {
	ListByOrg(ctx context.Context, orgID uuid.UUID, tags []string) ([]contacts.Contact, error)
}

type workerConfig struct {
	workers           int
	renderConcurrency int
	receiveBatchSize  int
	receiveWaitSecs   int
	email             delivery.EmailSender
}

// WorkerOption customizes the worker.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithRenderConcurrency bounds the per-job render/send goroutine pool.
func WithRenderConcurrency(n int) WorkerOption {
	return func(cfg *workerConfig) {
		if n > 0 {
			cfg.renderConcurrency = n
		}
	}
}

// WithEmailSender enables survey-channel campaigns, which deliver to each
// contact's email address instead of their phone.
func WithEmailSender(sender delivery.EmailSender) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.email = sender
	}
}

// Worker polls the broadcast queue and processes jobs until its context is
// canceled.
type Worker struct {
	queue     campaigns.Queue
	campaigns campaignStore
	templates templateGetter
	contacts  contactLister
	sender    delivery.Sender
	email     delivery.EmailSender
	jobs      campaigns.JobUpdater
	asts      *template.Cache
	metrics   *metrics.TemplateMetrics
	logger    *logging.Logger
	cfg       workerConfig
	wg        sync.WaitGroup
}

func NewWorker(
	queue campaigns.Queue,
	campaignStore campaignStore,
	templateGetter templateGetter,
	contactLister contactLister,
	sender delivery.Sender,
	jobs campaigns.JobUpdater,
	asts *template.Cache,
	m *metrics.TemplateMetrics,
	logger *logging.Logger,
	opts ...WorkerOption,
) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	if asts == nil {
		asts = template.NewCache(0)
	}
	cfg := workerConfig{
		workers:           defaultWorkerCount,
		renderConcurrency: defaultRenderConcurrency,
		receiveBatchSize:  defaultReceiveBatchSize,
		receiveWaitSecs:   defaultReceiveWaitSecs,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Worker{
		queue:     queue,
		campaigns: campaignStore,
		templates: templateGetter,
		contacts:  contactLister,
		sender:    sender,
		email:     cfg.email,
		jobs:      jobs,
		asts:      asts,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start launches the consumer goroutines.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all consumer goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("broadcast worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("broadcast worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive broadcast jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg campaigns.QueueMessage) {
	var payload campaigns.BroadcastMessage
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode broadcast job", "error", err)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	w.logger.Info("processing broadcast",
		"job_id", payload.JobID,
		"campaign_id", payload.CampaignID,
		"msg_id", msg.ID,
	)

	if err := w.process(ctx, payload); err != nil {
		w.logger.Error("broadcast failed", "job_id", payload.JobID, "error", err)
		if markErr := w.jobs.MarkFailed(ctx, payload.JobID, err.Error()); markErr != nil {
			w.logger.Error("failed to mark broadcast job failed", "job_id", payload.JobID, "error", markErr)
		}
	}

	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

// process renders the campaign's template once-per-contact and delivers the
// results. The compiled template is shared read-only across the render pool;
// every goroutine writes into its own output buffer.
func (w *Worker) process(ctx context.Context, payload campaigns.BroadcastMessage) error {
	campaignID, err := uuid.Parse(payload.CampaignID)
	if err != nil {
		return fmt.Errorf("invalid campaign id %q: %w", payload.CampaignID, err)
	}

	campaign, err := w.campaigns.Get(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}

	record, err := w.templates.Get(ctx, campaign.TemplateID)
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}

	compiled, hit, err := w.asts.Get(record.ID.String(), record.Content)
	w.metrics.ObserveCache(hit)
	if err != nil {
		return fmt.Errorf("compile template: %w", err)
	}

	deliver := w.deliverSMS
	if campaign.Channel == templates.ChannelSurvey {
		if w.email == nil {
			return fmt.Errorf("campaign %s is a survey but no email sender is configured", campaignID)
		}
		deliver = w.deliverEmail
	}

	targets, err := w.contacts.ListByOrg(ctx, campaign.OrgID, campaign.Tags)
	if err != nil {
		return fmt.Errorf("list contacts: %w", err)
	}

	var sent, failed int64
	sem := make(chan struct{}, w.cfg.renderConcurrency)
	var wg sync.WaitGroup
	for i := range targets {
		contact := targets[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			body := template.Render(compiled, contact.Bindings())
			w.metrics.ObserveRenderLatency("broadcast", time.Since(start).Seconds())

			if err := deliver(ctx, campaign, &contact, body); err != nil {
				w.logger.Error("broadcast send failed", "job_id", payload.JobID, "contact_id", contact.ID, "error", err)
				w.metrics.ObserveRender("broadcast", "error")
				atomic.AddInt64(&failed, 1)
				return
			}
			w.metrics.ObserveRender("broadcast", "ok")
			atomic.AddInt64(&sent, 1)
		}()
	}
	wg.Wait()

	if err := w.jobs.MarkCompleted(ctx, payload.JobID, len(targets), int(sent), int(failed)); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	if err := w.campaigns.SetStatus(ctx, campaignID, campaigns.StatusCompleted); err != nil {
		w.logger.Warn("failed to mark campaign completed", "campaign_id", campaignID, "error", err)
	}

	w.metrics.ObserveBroadcast(campaign.Channel, "completed")
	w.logger.Info("broadcast completed",
		"job_id", payload.JobID,
		"campaign_id", payload.CampaignID,
		"contacts", len(targets),
		"sent", sent,
		"failed", failed,
	)
	return nil
}

func (w *Worker) deliverSMS(ctx context.Context, campaign *campaigns.Campaign, contact *contacts.Contact, body string) error {
	if contact.Phone == "" {
		return fmt.Errorf("contact %s has no phone number", contact.ID)
	}
	return w.sender.Send(ctx, delivery.Message{
		OrgID: campaign.OrgID.String(),
		To:    contact.Phone,
		Body:  body,
	})
}

func (w *Worker) deliverEmail(ctx context.Context, campaign *campaigns.Campaign, contact *contacts.Contact, body string) error {
	if contact.Email == "" {
		return fmt.Errorf("contact %s has no email address", contact.ID)
	}
	return w.email.Send(ctx, delivery.EmailMessage{
		To:      contact.Email,
		ToName:  contact.Name,
		Subject: campaign.Name,
		Body:    body,
	})
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}
	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()
	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete broadcast job", "error", err)
	}
}
