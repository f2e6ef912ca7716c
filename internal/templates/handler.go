package templates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samparkhq/sampark/internal/observability/metrics"
	"github.com/samparkhq/sampark/pkg/logging"
	"github.com/samparkhq/sampark/pkg/template"
)

var tracer = otel.Tracer("sampark.internal.templates")

// RecordStore is the persistence surface the handler needs; *Store
// implements it.
type RecordStore interface {
	Insert(ctx context.Context, tpl *Template) error
	Update(ctx context.Context, tpl *Template) error
	Get(ctx context.Context, id uuid.UUID) (*Template, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]Template, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Handler serves template CRUD plus the engine's validate/render boundary.
type Handler struct {
	store   RecordStore
	records recordGetter // read path, usually the RecordCache
	asts    *template.Cache
	metrics *metrics.TemplateMetrics
	logger  *logging.Logger

	// invalidate is called after saves/deletes so stale cached records
	// never outlive a content change. Nil when no record cache is wired.
	invalidate func(ctx context.Context, id uuid.UUID)
}

func NewHandler(store RecordStore, records recordGetter, asts *template.Cache, m *metrics.TemplateMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if records == nil {
		records = storeReader{store}
	}
	if asts == nil {
		asts = template.NewCache(0)
	}
	return &Handler{
		store:   store,
		records: records,
		asts:    asts,
		metrics: m,
		logger:  logger,
	}
}

// WithInvalidator registers the record-cache invalidation hook.
func (h *Handler) WithInvalidator(fn func(ctx context.Context, id uuid.UUID)) *Handler {
	h.invalidate = fn
	return h
}

type storeReader struct{ store RecordStore }

func (r storeReader) Get(ctx context.Context, id uuid.UUID) (*Template, error) {
	return r.store.Get(ctx, id)
}

type validateRequest struct {
	Content string `json:"content"`
}

type renderRequest struct {
	TemplateID string            `json:"template_id,omitempty"`
	Content    string            `json:"content,omitempty"`
	Variables  map[string]string `json:"variables"`
}

type renderResponse struct {
	RenderedText string `json:"rendered_text"`
}

// parseFailure is the 422 body for lexical/structural errors, with the rune
// offset for editor highlighting.
type parseFailure struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error"`
	Offset  int    `json:"offset"`
}

// Validate handles POST /api/templates/validate.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "templates.validate")
	defer span.End()

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	tmpl, err := template.Compile(req.Content)
	if err != nil {
		h.metrics.ObserveValidate("invalid")
		writeParseFailure(w, err)
		return
	}

	report := template.Validate(tmpl)
	h.metrics.ObserveValidate("valid")
	span.SetAttributes(attribute.Int("sampark.template.variable_count", len(report.AllVariables())))
	writeJSON(w, http.StatusOK, report)
}

// Render handles POST /api/templates/render. Inline content compiles fresh;
// a template_id goes through the compiled-template cache so one stored
// template serves many renders with a single parse.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "templates.render")
	defer span.End()

	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	source := "inline"
	var tmpl *template.Template

	switch {
	case req.TemplateID != "":
		source = "stored"
		id, err := uuid.Parse(req.TemplateID)
		if err != nil {
			http.Error(w, "invalid template_id", http.StatusBadRequest)
			return
		}
		span.SetAttributes(attribute.String("sampark.template.id", id.String()))

		record, err := h.records.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		if err != nil {
			h.logger.Error("load template record", "template_id", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		compiled, hit, err := h.asts.Get(id.String(), record.Content)
		h.metrics.ObserveCache(hit)
		if err != nil {
			// Stored content is validated at save time; reaching this means
			// the record was written around the API.
			h.metrics.ObserveRender(source, "error")
			writeParseFailure(w, err)
			return
		}
		tmpl = compiled
	case req.Content != "":
		compiled, err := template.Compile(req.Content)
		if err != nil {
			h.metrics.ObserveRender(source, "error")
			writeParseFailure(w, err)
			return
		}
		tmpl = compiled
	default:
		http.Error(w, "template_id or content required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	rendered := template.Render(tmpl, req.Variables)
	h.metrics.ObserveRenderLatency(source, time.Since(start).Seconds())
	h.metrics.ObserveRender(source, "ok")

	writeJSON(w, http.StatusOK, renderResponse{RenderedText: rendered})
}

type saveRequest struct {
	OrgID   string `json:"org_id"`
	Name    string `json:"name"`
	Channel string `json:"channel"`
	Content string `json:"content"`
}

// Create handles POST /admin/templates. Content must parse; the variables
// column is filled from the validation report.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	orgID, err := uuid.Parse(req.OrgID)
	if err != nil {
		http.Error(w, "invalid org_id", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if !validChannel(req.Channel) {
		http.Error(w, "channel must be sms, voice, or survey", http.StatusBadRequest)
		return
	}

	tmpl, err := template.Compile(req.Content)
	if err != nil {
		h.metrics.ObserveValidate("invalid")
		writeParseFailure(w, err)
		return
	}
	report := template.Validate(tmpl)
	h.metrics.ObserveValidate("valid")

	record := &Template{
		OrgID:     orgID,
		Name:      req.Name,
		Channel:   req.Channel,
		Content:   req.Content,
		Variables: report.AllVariables(),
	}
	if err := h.store.Insert(r.Context(), record); err != nil {
		h.logger.Error("insert template", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// Update handles PUT /admin/templates/{id}. A content change invalidates
// both the record cache and the compiled-template cache.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromRequest(w, r)
	if !ok {
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if !validChannel(req.Channel) {
		http.Error(w, "channel must be sms, voice, or survey", http.StatusBadRequest)
		return
	}

	tmpl, err := template.Compile(req.Content)
	if err != nil {
		h.metrics.ObserveValidate("invalid")
		writeParseFailure(w, err)
		return
	}
	report := template.Validate(tmpl)
	h.metrics.ObserveValidate("valid")

	record := &Template{
		ID:        id,
		Name:      req.Name,
		Channel:   req.Channel,
		Content:   req.Content,
		Variables: report.AllVariables(),
	}
	err = h.store.Update(r.Context(), record)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("update template", "template_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.asts.Invalidate(id.String())
	if h.invalidate != nil {
		h.invalidate(r.Context(), id)
	}

	writeJSON(w, http.StatusOK, record)
}

// Get handles GET /admin/templates/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromRequest(w, r)
	if !ok {
		return
	}
	record, err := h.records.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get template", "template_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// List handles GET /admin/templates?org_id=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(r.URL.Query().Get("org_id"))
	if err != nil {
		http.Error(w, "org_id query parameter required", http.StatusBadRequest)
		return
	}
	records, err := h.store.ListByOrg(r.Context(), orgID)
	if err != nil {
		h.logger.Error("list templates", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": records})
}

// Delete handles DELETE /admin/templates/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromRequest(w, r)
	if !ok {
		return
	}
	err := h.store.Delete(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("delete template", "template_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.asts.Invalidate(id.String())
	if h.invalidate != nil {
		h.invalidate(r.Context(), id)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func idFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid template id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeParseFailure(w http.ResponseWriter, err error) {
	failure := parseFailure{Error: err.Error(), Offset: -1}

	var lexErr *template.LexError
	var parseErr *template.ParseError
	switch {
	case errors.As(err, &lexErr):
		failure.Offset = lexErr.Offset
	case errors.As(err, &parseErr):
		failure.Offset = parseErr.Offset
	}

	writeJSON(w, http.StatusUnprocessableEntity, failure)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
