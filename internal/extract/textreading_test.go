package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	words map[string][]Word
	errs  map[string]error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) ([]Word, error) {
	base := filepath.Base(audioPath)
	if err, ok := f.errs[base]; ok {
		return nil, err
	}
	return f.words[base], nil
}

func touchFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("webm"), 0o644))
}

func TestTextReadingExtractor(t *testing.T) {
	dir := t.TempDir()
	touchFile(t, dir, "S001_TextReading_1.webm")
	touchFile(t, dir, "S001_TextReading_2.webm")
	touchFile(t, dir, "S002_TextReading_1.webm") // other subject, ignored

	tr := &fakeTranscriber{words: map[string][]Word{
		// File means: (2/1 + 4/2)/2 = 2 and 6/2 = 3.
		"S001_TextReading_1.webm": {
			{Text: "你好", Start: 0, End: 1},
			{Text: "早安你好", Start: 1, End: 3},
		},
		"S001_TextReading_2.webm": {
			{Text: "今天天氣真好", Start: 0, End: 2},
			{Text: "嗯", Start: 2, End: 2}, // zero duration, skipped
		},
	}}

	rec, err := NewTextReadingExtractor(tr, nil).Extract(context.Background(), Input{SubjectID: "S001", DataDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "S001", rec.SubjectID)

	rate, ok := rec.Get("LANGUAGE_READING_BEH_NULL_MeanSR")
	require.True(t, ok)
	assert.InDelta(t, 2.5, rate, 1e-9)
}

func TestTextReadingExtractor_FailedRecordingIsSkipped(t *testing.T) {
	dir := t.TempDir()
	touchFile(t, dir, "S001_TextReading_1.webm")
	touchFile(t, dir, "S001_TextReading_2.webm")

	tr := &fakeTranscriber{
		words: map[string][]Word{
			"S001_TextReading_2.webm": {{Text: "你好", Start: 0, End: 1}},
		},
		errs: map[string]error{
			"S001_TextReading_1.webm": errors.New("decode failure"),
		},
	}

	rec, err := NewTextReadingExtractor(tr, nil).Extract(context.Background(), Input{SubjectID: "S001", DataDir: dir})
	require.NoError(t, err)

	rate, _ := rec.Get("LANGUAGE_READING_BEH_NULL_MeanSR")
	assert.InDelta(t, 2.0, rate, 1e-9)
}

func TestTextReadingExtractor_NoUsableRecordings(t *testing.T) {
	dir := t.TempDir()

	// No recordings at all.
	_, err := NewTextReadingExtractor(&fakeTranscriber{}, nil).Extract(context.Background(), Input{SubjectID: "S001", DataDir: dir})
	assert.ErrorIs(t, err, ErrNoFeatures)

	// Recordings exist but every transcription fails.
	touchFile(t, dir, "S001_TextReading_1.webm")
	tr := &fakeTranscriber{errs: map[string]error{"S001_TextReading_1.webm": errors.New("decode failure")}}
	_, err = NewTextReadingExtractor(tr, nil).Extract(context.Background(), Input{SubjectID: "S001", DataDir: dir})
	assert.ErrorIs(t, err, ErrNoFeatures)
}
