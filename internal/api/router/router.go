package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/samparkhq/sampark/internal/campaigns"
	httpmiddleware "github.com/samparkhq/sampark/internal/http/middleware"
	"github.com/samparkhq/sampark/internal/templates"
	"github.com/samparkhq/sampark/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	TemplateHandler    *templates.Handler
	CampaignHandler    *campaigns.Handler
	StatsHandler       http.Handler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Product API: template validation/rendering and campaign orchestration.
	r.Route("/api", func(api chi.Router) {
		if cfg.TemplateHandler != nil {
			api.Route("/templates", func(t chi.Router) {
				t.Post("/validate", cfg.TemplateHandler.Validate)
				t.Post("/render", cfg.TemplateHandler.Render)
			})
		}
		if cfg.CampaignHandler != nil {
			api.Route("/campaigns", func(c chi.Router) {
				c.Post("/", cfg.CampaignHandler.Create)
				c.Get("/", cfg.CampaignHandler.List)
				c.Get("/jobs/{jobID}", cfg.CampaignHandler.JobStatus)
				c.Get("/{id}", cfg.CampaignHandler.Get)
				c.Post("/{id}/broadcast", cfg.CampaignHandler.Broadcast)
			})
		}
		if cfg.StatsHandler != nil {
			api.Handle("/stats", cfg.StatsHandler)
		}
	})

	// Admin surface: template management behind JWT.
	if cfg.TemplateHandler != nil {
		r.Route("/admin/templates", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Post("/", cfg.TemplateHandler.Create)
			admin.Get("/", cfg.TemplateHandler.List)
			admin.Get("/{id}", cfg.TemplateHandler.Get)
			admin.Put("/{id}", cfg.TemplateHandler.Update)
			admin.Delete("/{id}", cfg.TemplateHandler.Delete)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
