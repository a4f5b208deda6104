// Package http holds the chi HTTP handlers of the service API.
package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "brainage/internal/errors"
	"brainage/internal/extract"
	"brainage/internal/integrate"
	"brainage/internal/services"
	v1 "brainage/pkg/contracts/api/v1"
)

// PipelineHandler serves the integration endpoints: the platform webhook,
// reprocessing, job status, and canonical-record lookup.
type PipelineHandler struct {
	service  *services.IntegrationService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewPipelineHandler creates the integration handler.
func NewPipelineHandler(service *services.IntegrationService, logger *slog.Logger) *PipelineHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "pipeline_handler")),
	}
}

// Routes returns the integration routes. webhookAuth middlewares, when
// given, guard the webhook endpoint only; the operator endpoints stay open.
func (h *PipelineHandler) Routes(webhookAuth ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.With(webhookAuth...).Post("/webhook", h.Webhook)
	r.Post("/reprocess", h.Reprocess)
	r.Post("/get_integrated_result", h.GetIntegratedResult)
	r.Get("/jobs/{jobID}", h.GetJob)

	return r
}

// Webhook handles the platform's new-file notification: it resolves each
// committed file to a subject and task and runs the integration. The
// transcription-heavy reading task goes to the background queue so the
// webhook responds quickly.
func (h *PipelineHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req v1.WebhookRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	task, ok := h.service.TaskForProject(req.Project.Name)
	if !ok {
		render.Render(w, r, apierrors.ErrValidation("project.name", "unknown project "+req.Project.Name))
		return
	}

	processed := 0
	for _, commit := range req.Commits {
		for _, added := range commit.Added {
			if strings.Contains(strings.ToLower(added), "demo") {
				continue
			}
			subjectID := extract.SubjectIDFromFilename(added)
			if subjectID == "" {
				continue
			}

			if task == extract.TaskTextReading {
				if _, err := h.service.EnqueueTextReading(subjectID); err != nil {
					render.Render(w, r, apierrors.PipelineError(err))
					return
				}
			} else {
				if err := h.service.IntegrateTasks(r.Context(), subjectID, []extract.Task{task}); err != nil {
					render.Render(w, r, apierrors.PipelineError(err))
					return
				}
			}
			processed++
		}
	}

	h.logger.InfoContext(r.Context(), "webhook handled",
		"project", req.Project.Name,
		"files_processed", processed,
	)
	render.JSON(w, r, map[string]any{"status": "ok", "processed": processed})
}

// Reprocess queues a full re-run of every task for one subject.
func (h *PipelineHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	var req v1.SubjectRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	job, err := h.service.EnqueueReprocess(req.SubjectID)
	if err != nil {
		render.Render(w, r, apierrors.PipelineError(err))
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, v1.ReprocessResponse{
		Status:  "accepted",
		JobID:   job.ID,
		Message: "reprocessing queued",
	})
}

// GetIntegratedResult returns the subject's persisted canonical record.
func (h *PipelineHandler) GetIntegratedResult(w http.ResponseWriter, r *http.Request) {
	var req v1.SubjectRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	rec, err := h.service.GetIntegratedResult(req.SubjectID)
	if err != nil {
		if errors.Is(err, integrate.ErrRecordNotFound) {
			render.Render(w, r, apierrors.SubjectNotFoundError(req.SubjectID))
			return
		}
		render.Render(w, r, apierrors.PipelineError(err))
		return
	}

	render.JSON(w, r, v1.IntegratedResultResponse{
		Status:           "success",
		IntegratedResult: rec,
	})
}

// GetJob returns the status of one background job.
func (h *PipelineHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, ok := h.service.Queue().GetJob(jobID)
	if !ok {
		render.Render(w, r, apierrors.ErrNotFound)
		return
	}
	render.JSON(w, r, job)
}
