// Package fitts runs the external Fitts'-law analysis tool over converted
// pointing-task traces and parses its per-sequence summary output.
package fitts

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

// Summary CSV columns written by the analyzer.
const (
	columnSequence   = "Sequence"
	columnPointTime  = "PT"
	columnThroughput = "TP"
)

// Analyzer invokes the analysis tool as a Java subprocess. It implements
// extract.TraceAnalyzer.
type Analyzer struct {
	javaBin string
	jarPath string
	timeout time.Duration
	logger  *slog.Logger
}

// NewAnalyzer creates an analyzer around the given JVM binary and jar.
func NewAnalyzer(javaBin, jarPath string, timeout time.Duration, logger *slog.Logger) *Analyzer {
	if javaBin == "" {
		javaBin = "java"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		javaBin: javaBin,
		jarPath: jarPath,
		timeout: timeout,
		logger:  logger,
	}
}

// Analyze runs the tool on one trace file and parses the sequence summary it
// writes next to the trace.
func (a *Analyzer) Analyze(ctx context.Context, tracePath string) ([]extract.SequenceSummary, error) {
	if _, err := os.Stat(a.jarPath); err != nil {
		return nil, fmt.Errorf("analyzer jar not found at %s: %w", a.jarPath, err)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, a.javaBin, "-jar", a.jarPath, tracePath)
	cmd.Dir = filepath.Dir(tracePath)

	start := time.Now()
	output, err := cmd.CombinedOutput()
	infrastructure.ExternalToolDuration.WithLabelValues("fitts_analyzer").Observe(time.Since(start).Seconds())
	if err != nil {
		a.logger.ErrorContext(ctx, "trace analysis failed",
			"trace", tracePath,
			"error", err.Error(),
			"output", string(output),
		)
		return nil, fmt.Errorf("trace analysis failed: %w, output: %s", err, string(output))
	}

	a.logger.DebugContext(ctx, "trace analysis completed",
		"trace", tracePath,
		"duration", time.Since(start).String(),
	)

	return readSummary(summaryPath(tracePath))
}

// summaryPath is where the tool writes its per-sequence summary for a trace.
func summaryPath(tracePath string) string {
	stem := strings.TrimSuffix(tracePath, filepath.Ext(tracePath))
	return stem + "-sequence-summary.csv"
}

// readSummary parses the per-sequence summary CSV.
func readSummary(path string) ([]extract.SequenceSummary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sequence summary: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse sequence summary %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("sequence summary %s has no data rows", path)
	}

	idx := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{columnSequence, columnPointTime, columnThroughput} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("sequence summary %s missing column %s", path, required)
		}
	}

	summaries := make([]extract.SequenceSummary, 0, len(records)-1)
	for _, record := range records[1:] {
		seq, err := strconv.Atoi(strings.TrimSpace(record[idx[columnSequence]]))
		if err != nil {
			return nil, fmt.Errorf("sequence summary %s: bad sequence %q: %w", path, record[idx[columnSequence]], err)
		}
		pt, err := strconv.ParseFloat(strings.TrimSpace(record[idx[columnPointTime]]), 64)
		if err != nil {
			return nil, fmt.Errorf("sequence summary %s: bad point time %q: %w", path, record[idx[columnPointTime]], err)
		}
		tp, err := strconv.ParseFloat(strings.TrimSpace(record[idx[columnThroughput]]), 64)
		if err != nil {
			return nil, fmt.Errorf("sequence summary %s: bad throughput %q: %w", path, record[idx[columnThroughput]], err)
		}
		summaries = append(summaries, extract.SequenceSummary{
			Sequence:   seq,
			PointTime:  pt,
			Throughput: tp,
		})
	}
	return summaries, nil
}
