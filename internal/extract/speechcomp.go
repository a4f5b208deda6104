package extract

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"brainage/pkg/contracts/domain"
)

// Raw columns of the sentence-comprehension task log.
const (
	speechCondColumn     = "condition"
	speechCorrectColumn  = "stim_resp.corr"
	speechDurationColumn = "duration"
)

// speechPassiveSubstring selects the passive-voice condition rows the
// extractor scores.
const speechPassiveSubstring = "passive"

// SpeechCompExtractor derives passive-sentence comprehension accuracy and
// the mean response duration on correctly answered passive trials. Both are
// NaN when the log contains no passive trials; the normalizer maps NaN onto
// the missing sentinel.
type SpeechCompExtractor struct {
	logger *slog.Logger
}

// NewSpeechCompExtractor creates the sentence-comprehension extractor.
func NewSpeechCompExtractor(logger *slog.Logger) *SpeechCompExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpeechCompExtractor{logger: logger}
}

// Task implements Extractor.
func (e *SpeechCompExtractor) Task() Task { return TaskSpeechComp }

// Extract implements Extractor.
func (e *SpeechCompExtractor) Extract(ctx context.Context, in Input) (*domain.FeatureRecord, error) {
	log, err := ReadTrialLog(in.Path)
	if err != nil {
		return nil, err
	}

	// This task's export does not repeat the participant code per row; the
	// ID comes from the filename's leading token.
	subjectID := in.SubjectID
	if subjectID == "" {
		subjectID = SubjectIDFromFilename(in.Path)
	}

	var (
		passiveCount   int
		correctSum     float64
		durationSum    float64
		durationCount  int
	)

	for _, row := range log.Rows {
		if !strings.Contains(row.String(speechCondColumn), speechPassiveSubstring) {
			continue
		}
		passiveCount++

		corr, okCorr := row.Float(speechCorrectColumn)
		if okCorr {
			correctSum += corr
		}
		if okCorr && corr == 1 {
			if d, okDur := row.Float(speechDurationColumn); okDur {
				durationSum += d
				durationCount++
			}
		}
	}

	accuracy := math.NaN()
	if passiveCount > 0 {
		accuracy = correctSum * 100 / float64(passiveCount)
	}
	meanRT := math.NaN()
	if durationCount > 0 {
		meanRT = durationSum / float64(durationCount)
	}

	e.logger.DebugContext(ctx, "scored passive comprehension trials",
		"subject_id", subjectID,
		"passive_trials", passiveCount,
		"correct_with_duration", durationCount,
	)

	rec := domain.NewFeatureRecord(subjectID)
	rec.Set("SPEECHCOMP_PASSIVE_ACCURACY", accuracy)
	rec.Set("SPEECHCOMP_PASSIVE_RT", meanRT)
	return rec, nil
}
