package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"brainage/pkg/contracts/domain"
)

// Word is one transcribed word with its start and end timestamps in seconds.
type Word struct {
	Text  string
	Start float64
	End   float64
}

// Transcriber turns one audio recording into time-aligned words.
// Implementations bound the run with a timeout and return a structured error
// on failure.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]Word, error)
}

// TextReadingExtractor derives the speech-production rate feature: for every
// recording of the subject it transcribes the audio, computes each word's
// articulation rate as character count over spoken duration, averages within
// the recording, then averages across recordings. Recordings that fail to
// transcribe or yield no timed words are skipped; when every recording is
// skipped the extractor reports ErrNoFeatures so the feature stays absent
// rather than zero.
type TextReadingExtractor struct {
	transcriber Transcriber
	logger      *slog.Logger
}

// NewTextReadingExtractor creates the reading-task extractor.
func NewTextReadingExtractor(transcriber Transcriber, logger *slog.Logger) *TextReadingExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextReadingExtractor{transcriber: transcriber, logger: logger}
}

// Task implements Extractor.
func (e *TextReadingExtractor) Task() Task { return TaskTextReading }

// Extract implements Extractor.
func (e *TextReadingExtractor) Extract(ctx context.Context, in Input) (*domain.FeatureRecord, error) {
	subjectID := in.SubjectID
	if subjectID == "" {
		subjectID = SubjectIDFromFilename(in.Path)
	}

	recordings, err := e.subjectRecordings(in, subjectID)
	if err != nil {
		return nil, err
	}
	if len(recordings) == 0 {
		return nil, ErrNoFeatures
	}

	var fileMeans []float64
	for _, path := range recordings {
		words, err := e.transcriber.Transcribe(ctx, path)
		if err != nil {
			e.logger.WarnContext(ctx, "transcription failed, skipping recording",
				"subject_id", subjectID,
				"path", path,
				"error", err,
			)
			continue
		}
		if mean, ok := meanSyllableRate(words); ok {
			fileMeans = append(fileMeans, mean)
		}
	}
	if len(fileMeans) == 0 {
		return nil, ErrNoFeatures
	}

	var sum float64
	for _, m := range fileMeans {
		sum += m
	}
	rate := sum / float64(len(fileMeans))

	e.logger.DebugContext(ctx, "computed reading rate",
		"subject_id", subjectID,
		"recordings", len(recordings),
		"scored_recordings", len(fileMeans),
	)

	rec := domain.NewFeatureRecord(subjectID)
	rec.Set("LANGUAGE_READING_BEH_NULL_MeanSR", rate)
	return rec, nil
}

// subjectRecordings collects every audio recording of the subject in the
// task's data directory, in stable order. A single explicit path is used
// as-is.
func (e *TextReadingExtractor) subjectRecordings(in Input, subjectID string) ([]string, error) {
	if in.DataDir == "" {
		if in.Path == "" {
			return nil, fmt.Errorf("textreading input for %s has neither path nor data dir", subjectID)
		}
		return []string{in.Path}, nil
	}

	pattern := filepath.Join(in.DataDir, fmt.Sprintf("%s_TextReading_*.webm", subjectID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob recordings for %s: %w", subjectID, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// meanSyllableRate averages the per-word articulation rate (characters per
// second) over the words with a positive spoken duration. The transcript is
// logographic, so character count stands in for syllable count.
func meanSyllableRate(words []Word) (float64, bool) {
	var sum float64
	count := 0
	for _, w := range words {
		dur := w.End - w.Start
		if dur <= 0 {
			continue
		}
		sum += float64(utf8.RuneCountInString(w.Text)) / dur
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}
