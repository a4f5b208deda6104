package extract

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"brainage/pkg/contracts/domain"
)

// Raw columns of the pointing (GoFitts) task log.
const (
	gofittsSeqColumn   = "sequence_loop.thisN"
	gofittsTrialColumn = "trial_loop.thisN"
	gofittsFromColumn  = "from"
	gofittsToColumn    = "to"
	gofittsXColumn     = "mouse.x"
	gofittsYColumn     = "mouse.y"
	gofittsTimeColumn  = "mouse.time"
	gofittsWidthColumn = "w"
	gofittsAmpColumn   = "a"
	gofittsLeaveColumn = "leave_time"
)

// Screen re-centering offsets: the task records cursor coordinates relative
// to the screen center of a 1920x1080 canvas, the analyzer expects top-left
// origin.
const (
	gofittsHalfWidth  = 960
	gofittsHalfHeight = 540
)

// SequenceSummary is one sequence's result from the external Fitts'-law
// analyzer: mean pointing time and throughput.
type SequenceSummary struct {
	Sequence   int
	PointTime  float64
	Throughput float64
}

// TraceAnalyzer is the external Fitts'-law analysis tool. Given a flat trace
// file it returns per-sequence summaries. Implementations bound the run with
// a timeout and return a structured error on failure.
type TraceAnalyzer interface {
	Analyze(ctx context.Context, tracePath string) ([]SequenceSummary, error)
}

// GoFittsExtractor derives motor features in two stages: it reshapes the
// per-trial cursor traces into the flat layout the external analyzer
// consumes, then joins the analyzer's per-sequence point time and throughput
// with leave-time latencies taken directly from the raw log, and fits a
// linear trend across sequences for each metric.
type GoFittsExtractor struct {
	analyzer TraceAnalyzer
	logger   *slog.Logger
}

// NewGoFittsExtractor creates the pointing-task extractor.
func NewGoFittsExtractor(analyzer TraceAnalyzer, logger *slog.Logger) *GoFittsExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoFittsExtractor{analyzer: analyzer, logger: logger}
}

// Task implements Extractor.
func (e *GoFittsExtractor) Task() Task { return TaskGoFitts }

// Extract implements Extractor.
func (e *GoFittsExtractor) Extract(ctx context.Context, in Input) (*domain.FeatureRecord, error) {
	log, err := ReadTrialLog(in.Path)
	if err != nil {
		return nil, err
	}

	subjectID, err := subjectIDFromLog(log)
	if err != nil {
		return nil, fmt.Errorf("gofitts log %s: %w", in.Path, err)
	}

	tracePath := filepath.Join(filepath.Dir(in.Path), fmt.Sprintf("GoFitts-%s.sd3", subjectID))
	if err := writeTraceFile(log, subjectID, tracePath); err != nil {
		return nil, fmt.Errorf("convert trace for %s: %w", subjectID, err)
	}

	summaries, err := e.analyzer.Analyze(ctx, tracePath)
	if err != nil {
		return nil, fmt.Errorf("analyze trace for %s: %w", subjectID, err)
	}
	if len(summaries) == 0 {
		return nil, ErrNoFeatures
	}

	e.logger.DebugContext(ctx, "gofitts trace analyzed",
		"subject_id", subjectID,
		"sequences", len(summaries),
	)

	seqCount := len(summaries)
	leaveTime := make([]float64, seqCount)
	pointTime := make([]float64, seqCount)
	throughput := make([]float64, seqCount)

	for i, s := range summaries {
		leaveTime[i] = meanLeaveTime(log.Rows, s.Sequence) * 1000
		pointTime[i] = s.PointTime
		throughput[i] = s.Throughput
	}

	rec := domain.NewFeatureRecord(subjectID)
	metrics := []struct {
		name   string
		values []float64
	}{
		{"LeaveTime", leaveTime},
		{"PointTime", pointTime},
		{"Throughput", throughput},
	}
	for _, m := range metrics {
		for i, v := range m.values {
			rec.Set(fmt.Sprintf("GOFITTS_BEH_ID%d_%s", i, m.name), v)
		}
		rec.Set(fmt.Sprintf("GOFITTS_BEH_SLOPE_%s", m.name), olsSlope(m.values))
	}

	return rec, nil
}

// meanLeaveTime is the mean cue-to-movement latency (seconds) over the valid
// rows of one sequence.
func meanLeaveTime(rows []domain.TrialRow, sequence int) float64 {
	var sum float64
	count := 0
	for _, row := range rows {
		seq, ok := row.Float(gofittsSeqColumn)
		if !ok || int(seq) != sequence {
			continue
		}
		if lt, ok := row.Float(gofittsLeaveColumn); ok {
			sum += lt
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

// olsSlope fits an ordinary-least-squares line through (index, value) pairs
// and returns its slope.
func olsSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return math.NaN()
	}
	meanX := (n - 1) / 2
	var meanY float64
	for _, v := range values {
		meanY += v
	}
	meanY /= n

	var num, den float64
	for i, v := range values {
		dx := float64(i) - meanX
		num += dx * (v - meanY)
		den += dx * dx
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// writeTraceFile emits the flat per-sample trace layout the external
// analyzer consumes: two header lines, then one line per (trial, channel)
// with channel t (ms), x, and y, coordinates shifted to a top-left origin.
func writeTraceFile(log *domain.TrialLog, subjectID, outPath string) error {
	columns := []string{
		gofittsSeqColumn, gofittsTrialColumn, gofittsFromColumn, gofittsToColumn,
		gofittsXColumn, gofittsYColumn, gofittsTimeColumn, gofittsWidthColumn, gofittsAmpColumn,
	}
	rows := SelectWindow(log.Rows, 0, columns)
	if len(rows) == 0 {
		return fmt.Errorf("no complete trace rows")
	}

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create trace file: %w", err)
	}
	defer file.Close()

	var b strings.Builder
	b.WriteString("TRACE DATA\n")
	b.WriteString("App,Participant,Condition,Session,Group,TaskType,SelectionMethod,Block,Sequence,A,W,Trial,from_x,from_y,to_x,to_y,{t_x_y}\n")

	for _, row := range rows {
		seq, _ := row.Float(gofittsSeqColumn)
		trial, _ := row.Float(gofittsTrialColumn)
		width, _ := row.Float(gofittsWidthColumn)
		amp, _ := row.Float(gofittsAmpColumn)

		fromX, fromY, err := parsePoint(row.String(gofittsFromColumn))
		if err != nil {
			return fmt.Errorf("parse from point: %w", err)
		}
		toX, toY, err := parsePoint(row.String(gofittsToColumn))
		if err != nil {
			return fmt.Errorf("parse to point: %w", err)
		}

		xs, err := parseFloatList(row.String(gofittsXColumn))
		if err != nil {
			return fmt.Errorf("parse x trace: %w", err)
		}
		ys, err := parseFloatList(row.String(gofittsYColumn))
		if err != nil {
			return fmt.Errorf("parse y trace: %w", err)
		}
		ts, err := parseFloatList(row.String(gofittsTimeColumn))
		if err != nil {
			return fmt.Errorf("parse time trace: %w", err)
		}

		fromTo := strings.Join([]string{
			formatCoord(round1(fromX) + gofittsHalfWidth),
			formatCoord(round1(fromY) + gofittsHalfHeight),
			formatCoord(round1(toX) + gofittsHalfWidth),
			formatCoord(round1(toY) + gofittsHalfHeight),
		}, ",")

		prefix := fmt.Sprintf("FittsTask,%s,C00,S00,G00,2D,DT0,B00,%d,%d,%d,%d,%s",
			subjectID, int(seq), int(amp), int(width), int(trial), fromTo)

		channels := []struct {
			tag    string
			values []string
		}{
			{"t=", sampleInts(ts, 1000, 0)},
			{"x=", sampleInts(xs, 1, gofittsHalfWidth)},
			{"y=", sampleInts(ys, 1, gofittsHalfHeight)},
		}
		for _, ch := range channels {
			b.WriteString(prefix)
			b.WriteString(",")
			b.WriteString(ch.tag)
			b.WriteString(",")
			b.WriteString(strings.Join(ch.values, ","))
			b.WriteString("\n")
		}
	}

	if _, err := file.WriteString(b.String()); err != nil {
		return fmt.Errorf("write trace file: %w", err)
	}
	return nil
}

// sampleInts scales each sample, shifts it, and truncates to an integer
// string (ms timestamps or screen-origin pixel coordinates).
func sampleInts(values []float64, scale, offset float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Itoa(int(math.Trunc(v*scale + offset)))
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// parsePoint parses a serialized "[x, y]" coordinate pair.
func parsePoint(s string) (float64, float64, error) {
	vals, err := parseFloatList(s)
	if err != nil {
		return 0, 0, err
	}
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("expected 2 coordinates, got %d", len(vals))
	}
	return vals[0], vals[1], nil
}

// parseFloatList parses a serialized "[a, b, c]" float array as the export
// writes it.
func parseFloatList(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse list element %q: %w", p, err)
		}
		out = append(out, f)
	}
	return out, nil
}
