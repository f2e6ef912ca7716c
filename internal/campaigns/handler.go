package campaigns

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/samparkhq/sampark/internal/observability/metrics"
	"github.com/samparkhq/sampark/pkg/logging"
)

// CampaignStore is the persistence surface the handler needs; *Repository
// implements it.
type CampaignStore interface {
	Create(ctx context.Context, c *Campaign) error
	Get(ctx context.Context, id uuid.UUID) (*Campaign, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]Campaign, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

type publisher interface {
	Publish(ctx context.Context, msg BroadcastMessage) error
}

// Handler serves campaign CRUD and broadcast kickoff.
type Handler struct {
	repo    CampaignStore
	queue   publisher
	jobs    JobRecorder
	metrics *metrics.TemplateMetrics
	logger  *logging.Logger
}

func NewHandler(repo CampaignStore, queue publisher, jobs JobRecorder, m *metrics.TemplateMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, queue: queue, jobs: jobs, metrics: m, logger: logger}
}

type createRequest struct {
	OrgID      string   `json:"org_id"`
	Name       string   `json:"name"`
	Channel    string   `json:"channel"`
	TemplateID string   `json:"template_id"`
	Tags       []string `json:"tags"`
}

// Create handles POST /api/campaigns.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	orgID, err := uuid.Parse(req.OrgID)
	if err != nil {
		http.Error(w, "invalid org_id", http.StatusBadRequest)
		return
	}
	templateID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		http.Error(w, "invalid template_id", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}

	campaign := &Campaign{
		OrgID:      orgID,
		Name:       req.Name,
		Channel:    req.Channel,
		TemplateID: templateID,
		Tags:       req.Tags,
		Status:     StatusDraft,
	}
	if campaign.Tags == nil {
		campaign.Tags = []string{}
	}
	if err := h.repo.Create(r.Context(), campaign); err != nil {
		h.logger.Error("create campaign", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, campaign)
}

// List handles GET /api/campaigns?org_id=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(r.URL.Query().Get("org_id"))
	if err != nil {
		http.Error(w, "org_id query parameter required", http.StatusBadRequest)
		return
	}
	out, err := h.repo.ListByOrg(r.Context(), orgID)
	if err != nil {
		h.logger.Error("list campaigns", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": out})
}

// Get handles GET /api/campaigns/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	campaign, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "campaign not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get campaign", "campaign_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

// Broadcast handles POST /api/campaigns/{id}/broadcast: records a pending
// job, enqueues it for the worker, and returns 202 with the job ID for
// status polling.
func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	campaign, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "campaign not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("load campaign for broadcast", "campaign_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	job := &JobRecord{
		JobID:      uuid.NewString(),
		CampaignID: campaign.ID.String(),
		OrgID:      campaign.OrgID.String(),
	}
	if err := h.jobs.PutPending(r.Context(), job); err != nil {
		h.logger.Error("record broadcast job", "campaign_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	msg := BroadcastMessage{
		JobID:      job.JobID,
		CampaignID: job.CampaignID,
		OrgID:      job.OrgID,
	}
	if err := h.queue.Publish(r.Context(), msg); err != nil {
		h.logger.Error("enqueue broadcast", "campaign_id", id, "job_id", job.JobID, "error", err)
		h.metrics.ObserveBroadcast(campaign.Channel, "enqueue_error")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := h.repo.SetStatus(r.Context(), id, StatusQueued); err != nil {
		h.logger.Warn("mark campaign queued", "campaign_id", id, "error", err)
	}
	h.metrics.ObserveBroadcast(campaign.Channel, "enqueued")

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(JobStatusPending),
	})
}

// JobStatus handles GET /api/campaigns/jobs/{jobID}.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := h.jobs.GetJob(r.Context(), jobID)
	if errors.Is(err, ErrJobNotFound) {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get broadcast job", "job_id", jobID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
