// Package transcribe runs the external speech-to-text tool over reading-task
// recordings and parses its word-level timing output.
package transcribe

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"brainage/internal/extract"
	"brainage/internal/infrastructure"
)

// Word timing CSV columns written by the tool.
const (
	columnWord  = "word"
	columnStart = "start"
	columnEnd   = "end"
)

// Transcriber invokes the speech-to-text tool as a subprocess. It implements
// extract.Transcriber.
type Transcriber struct {
	binPath string
	timeout time.Duration
	logger  *slog.Logger
}

// NewTranscriber creates a transcriber around the given binary.
func NewTranscriber(binPath string, timeout time.Duration, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcriber{binPath: binPath, timeout: timeout, logger: logger}
}

// Transcribe runs the tool on one recording and parses the word-timing CSV it
// writes next to the audio file.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) ([]extract.Word, error) {
	if t.binPath == "" {
		return nil, fmt.Errorf("transcriber binary not configured")
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	outPath := wordsPath(audioPath)
	cmd := exec.CommandContext(ctx, t.binPath, "--word-timestamps", "--output", outPath, audioPath)
	cmd.Dir = filepath.Dir(audioPath)

	start := time.Now()
	output, err := cmd.CombinedOutput()
	infrastructure.ExternalToolDuration.WithLabelValues("transcriber").Observe(time.Since(start).Seconds())
	if err != nil {
		t.logger.ErrorContext(ctx, "transcription failed",
			"audio", audioPath,
			"error", err.Error(),
			"output", string(output),
		)
		return nil, fmt.Errorf("transcription failed: %w, output: %s", err, string(output))
	}

	t.logger.DebugContext(ctx, "transcription completed",
		"audio", audioPath,
		"duration", time.Since(start).String(),
	)

	return readWords(outPath)
}

// wordsPath is where the tool writes word timings for a recording.
func wordsPath(audioPath string) string {
	stem := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	return stem + "_words.csv"
}

// readWords parses the word-timing CSV.
func readWords(path string) ([]extract.Word, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word timings: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse word timings %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	idx := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{columnWord, columnStart, columnEnd} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("word timings %s missing column %s", path, required)
		}
	}

	words := make([]extract.Word, 0, len(records)-1)
	for _, record := range records[1:] {
		start, err := strconv.ParseFloat(strings.TrimSpace(record[idx[columnStart]]), 64)
		if err != nil {
			return nil, fmt.Errorf("word timings %s: bad start %q: %w", path, record[idx[columnStart]], err)
		}
		end, err := strconv.ParseFloat(strings.TrimSpace(record[idx[columnEnd]]), 64)
		if err != nil {
			return nil, fmt.Errorf("word timings %s: bad end %q: %w", path, record[idx[columnEnd]], err)
		}
		words = append(words, extract.Word{
			Text:  strings.TrimSpace(record[idx[columnWord]]),
			Start: start,
			End:   end,
		})
	}
	return words, nil
}
