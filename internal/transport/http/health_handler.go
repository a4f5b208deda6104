package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"brainage/internal/integrate"
	"brainage/pkg/contracts"
)

// HealthHandler serves liveness and version endpoints.
type HealthHandler struct {
	store   *integrate.Store
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(store *integrate.Store, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		store:   store,
		started: time.Now(),
		logger:  logger,
	}
}

// Routes returns the health routes.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.Health)
	r.Get("/version", h.Version)
	return r
}

// Health reports service status and how many subjects have persisted records.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	subjects := 0
	if ids, err := h.store.SubjectIDs(); err != nil {
		h.logger.ErrorContext(r.Context(), "record store unreadable", "error", err)
		status = "degraded"
	} else {
		subjects = len(ids)
	}

	if status != "healthy" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, map[string]any{
		"status":   status,
		"version":  contracts.Version,
		"subjects": subjects,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}

// Version reports detailed build information.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}
