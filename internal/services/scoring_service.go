package services

import (
	"context"
	"log/slog"

	"brainage/internal/infrastructure"
	"brainage/internal/integrate"
	"brainage/internal/scoring"
	"brainage/pkg/contracts/domain"
)

// ScoringService scores persisted canonical records on demand.
type ScoringService struct {
	engine *scoring.Engine
	store  *integrate.Store
	logger *slog.Logger
}

// NewScoringService creates the scoring service.
func NewScoringService(engine *scoring.Engine, store *integrate.Store, logger *slog.Logger) *ScoringService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoringService{engine: engine, store: store, logger: logger}
}

// Predict loads the subject's canonical record and scores it against the
// chronological age. Unknown subjects surface the store's typed not-found
// error.
func (s *ScoringService) Predict(ctx context.Context, subjectID string, age int) (*domain.ScoredResult, error) {
	rec, err := s.store.Get(subjectID)
	if err != nil {
		infrastructure.ScoringRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	result, err := s.engine.Score(subjectID, rec, age)
	if err != nil {
		infrastructure.ScoringRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	outcome := "scored"
	if result.Suppressed {
		outcome = "suppressed"
	}
	infrastructure.ScoringRequests.WithLabelValues(outcome).Inc()

	s.logger.InfoContext(ctx, "prediction served",
		"subject_id", subjectID,
		"age", age,
		"suppressed", result.Suppressed,
	)
	return result, nil
}
