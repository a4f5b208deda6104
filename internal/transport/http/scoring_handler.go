package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "brainage/internal/errors"
	"brainage/internal/integrate"
	"brainage/internal/services"
	v1 "brainage/pkg/contracts/api/v1"
	"brainage/pkg/contracts/domain"
)

// ScoringHandler serves POST /predict.
type ScoringHandler struct {
	service           *services.ScoringService
	totalParticipants int
	validate          *validator.Validate
	logger            *slog.Logger
}

// NewScoringHandler creates the scoring handler. totalParticipants is
// reported in response metadata.
func NewScoringHandler(service *services.ScoringService, totalParticipants int, logger *slog.Logger) *ScoringHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoringHandler{
		service:           service,
		totalParticipants: totalParticipants,
		validate:          validator.New(),
		logger:            logger.With(slog.String("component", "scoring_handler")),
	}
}

// Routes returns the scoring routes.
func (h *ScoringHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/predict", h.Predict)
	return r
}

// Predict scores one subject's persisted record against the submitted
// chronological age.
func (h *ScoringHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req v1.PredictRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	result, err := h.service.Predict(r.Context(), req.IDCard, req.Age)
	if err != nil {
		if errors.Is(err, integrate.ErrRecordNotFound) {
			render.Render(w, r, apierrors.SubjectNotFoundError(req.IDCard))
			return
		}
		render.Render(w, r, apierrors.ScoringError(err))
		return
	}

	render.JSON(w, r, toPredictResponse(req, result, h.totalParticipants))
}

func toPredictResponse(req v1.PredictRequest, result *domain.ScoredResult, totalParticipants int) v1.PredictResponse {
	functions := make([]v1.CognitiveFunctionScore, 0, len(result.Domains))
	for _, d := range result.Domains {
		functions = append(functions, v1.CognitiveFunctionScore{
			Name:  string(d.Name),
			Score: d.Percentile,
		})
	}

	return v1.PredictResponse{
		IDCard:   req.IDCard,
		Name:     req.Name,
		TestDate: req.TestDate,
		Results: v1.PredictResults{
			BrainAge:         result.BrainAge,
			ChronologicalAge: result.ChronologicalAge,
			OriginalPAD:      result.OriginalPAD,
			AgeCorrectedPAD:  result.AgeCorrectedPAD,
		},
		CognitiveFunctions: functions,
		Meta:               v1.PredictMeta{TotalParticipants: totalParticipants},
	}
}
