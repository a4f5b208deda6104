package extract

import (
	"context"
	"fmt"
	"log/slog"

	"brainage/pkg/contracts/domain"
)

// Raw columns of the operation-span (working memory) task log.
const (
	ospanMathColumn   = "MathResult"
	ospanLetterColumn = "LetterResult"
)

// ospanWindow is the scored phase: 4x3 plus 6x3 trials.
const ospanWindow = (4 * 3) + (6 * 3)

// letterRescale projects the 30-trial online letter score onto the 75-trial
// distribution of the full-length instrument the feature was normed against
// (30 x 2.5 = 75). The constant is instrument-specific and must not change.
const letterRescale = 2.5

// OspanExtractor derives the two working-memory sub-scores: mean math
// accuracy and rescaled summed letter recall.
type OspanExtractor struct {
	logger *slog.Logger
}

// NewOspanExtractor creates the ospan-task extractor.
func NewOspanExtractor(logger *slog.Logger) *OspanExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &OspanExtractor{logger: logger}
}

// Task implements Extractor.
func (e *OspanExtractor) Task() Task { return TaskOspan }

// Extract implements Extractor.
func (e *OspanExtractor) Extract(ctx context.Context, in Input) (*domain.FeatureRecord, error) {
	log, err := ReadTrialLog(in.Path)
	if err != nil {
		return nil, err
	}

	subjectID, err := subjectIDFromLog(log)
	if err != nil {
		return nil, fmt.Errorf("ospan log %s: %w", in.Path, err)
	}

	// Each sub-score trims its own valid window over its single column, so
	// a row unusable for one score can still count for the other.
	mathRows := SelectWindow(log.Rows, ospanWindow, []string{ospanMathColumn})
	letterRows := SelectWindow(log.Rows, ospanWindow, []string{ospanLetterColumn})

	e.logger.DebugContext(ctx, "selected ospan trial windows",
		"subject_id", subjectID,
		"math_rows", len(mathRows),
		"letter_rows", len(letterRows),
	)

	mathScore := columnMean(mathRows, ospanMathColumn)
	letterScore := columnSum(letterRows, ospanLetterColumn) * letterRescale

	rec := domain.NewFeatureRecord(subjectID)
	rec.Set("MEMORY_OSPAN_BEH_MATH_ACCURACY", mathScore)
	rec.Set("MEMORY_OSPAN_BEH_LETTER_ACCURACY", letterScore)
	return rec, nil
}

func columnSum(rows []domain.TrialRow, column string) float64 {
	var sum float64
	for _, row := range rows {
		if v, ok := row.Float(column); ok {
			sum += v
		}
	}
	return sum
}

func columnMean(rows []domain.TrialRow, column string) float64 {
	count := 0
	var sum float64
	for _, row := range rows {
		if v, ok := row.Float(column); ok {
			sum += v
			count++
		}
	}
	if count == 0 {
		return domain.Sentinel
	}
	return sum / float64(count)
}
