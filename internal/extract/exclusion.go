package extract

import (
	"context"
	"fmt"
	"log/slog"

	"brainage/pkg/contracts/domain"
)

// Raw columns of the recognition-memory (exclusion) task log.
const (
	exclusionCueColumn  = "number_of_cue_t"
	exclusionRespColumn = "key_resp.keys"
	exclusionRTColumn   = "key_resp.rt"
	exclusionStimColumn = "stimuli_t"
)

// exclusionWindow is the scored phase: 18 trials for each of the 3 cues.
const exclusionWindow = 18 * 3

// Stimulus types in the exclusion task.
const (
	stimulusTarget    = 1
	stimulusNonTarget = 2
	stimulusNew       = 3
)

// ExclusionExtractor derives recognition-memory features: per-cue response
// proportions and latencies for target/non-target/new items, plus the
// recollection and familiarity estimates built from them.
type ExclusionExtractor struct {
	logger *slog.Logger
}

// NewExclusionExtractor creates the exclusion-task extractor.
func NewExclusionExtractor(logger *slog.Logger) *ExclusionExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExclusionExtractor{logger: logger}
}

// Task implements Extractor.
func (e *ExclusionExtractor) Task() Task { return TaskExclusion }

// Extract implements Extractor.
func (e *ExclusionExtractor) Extract(ctx context.Context, in Input) (*domain.FeatureRecord, error) {
	log, err := ReadTrialLog(in.Path)
	if err != nil {
		return nil, err
	}

	subjectID, err := subjectIDFromLog(log)
	if err != nil {
		return nil, fmt.Errorf("exclusion log %s: %w", in.Path, err)
	}

	columns := []string{exclusionCueColumn, exclusionRespColumn, exclusionRTColumn, exclusionStimColumn}
	rows := SelectWindow(log.Rows, exclusionWindow, columns)

	e.logger.DebugContext(ctx, "selected exclusion trial window",
		"subject_id", subjectID,
		"raw_rows", len(log.Rows),
		"window_rows", len(rows),
	)

	// yesRate[c][t]: fraction of 's' responses in the (cue c+1, stimulus
	// t+1) slice. An empty slice yields rate 0.
	var yesRate [3][3]float64
	// meanRT[c][t][r]: summed latency of response r ('s' then 'k') over the
	// total row count of the (cue, stimulus) slice. The total-slice
	// denominator is the instrument's established weighting and is kept
	// as-is for output compatibility. A value of exactly 0 is recoded to
	// the missing sentinel.
	var meanRT [3][3][2]float64

	for c := 0; c < 3; c++ {
		for t := 0; t < 3; t++ {
			slice := filterCueStimulus(rows, c+1, t+1)
			yesRate[c][t] = yesResponseRate(slice)
			meanRT[c][t] = meanResponseRT(slice)
		}
	}

	rec := domain.NewFeatureRecord(subjectID)

	// Recollection and familiarity per cue, from target hits and non-target
	// false alarms.
	var recollection, familiarity [3]float64
	for c := 0; c < 3; c++ {
		hit := yesRate[c][stimulusTarget-1]
		fa := yesRate[c][stimulusNonTarget-1]
		recollection[c] = hit - fa
		denom := 1 - recollection[c]
		if recollection[c] == 1 {
			denom = 1 - 0.999
		}
		familiarity[c] = fa / denom
	}

	for c := 0; c < 3; c++ {
		rec.Set(fmt.Sprintf("MEMORY_EXCLUSION_BEH_C%d_FAMILIARITY", c+1), familiarity[c])
	}
	for c := 0; c < 3; c++ {
		rec.Set(fmt.Sprintf("MEMORY_EXCLUSION_BEH_C%d_RECOLLECTION", c+1), recollection[c])
	}

	for c := 0; c < 3; c++ {
		prefix := fmt.Sprintf("MEMORY_EXCLUSION_BEH_C%d", c+1)
		tar := yesRate[c][stimulusTarget-1]
		non := yesRate[c][stimulusNonTarget-1]
		novel := yesRate[c][stimulusNew-1]

		rec.Set(prefix+"TarHit_PROPORTION", tar)
		rec.Set(prefix+"TarMiss_PROPORTION", 1-tar)
		rec.Set(prefix+"NonTarFA_PROPORTION", non)
		rec.Set(prefix+"NonTarCR_PROPORTION", 1-non)
		rec.Set(prefix+"NewFA_PROPORTION", novel)
		rec.Set(prefix+"NewCR_PROPORTION", 1-novel)

		rec.Set(prefix+"TarHit_RT", meanRT[c][stimulusTarget-1][0])
		rec.Set(prefix+"TarMiss_RT", meanRT[c][stimulusTarget-1][1])
		rec.Set(prefix+"NonTarFA_RT", meanRT[c][stimulusNonTarget-1][0])
		rec.Set(prefix+"NonTarCR_RT", meanRT[c][stimulusNonTarget-1][1])
		rec.Set(prefix+"NewFA_RT", meanRT[c][stimulusNew-1][0])
		rec.Set(prefix+"NewCR_RT", meanRT[c][stimulusNew-1][1])
	}

	return rec, nil
}

// filterCueStimulus returns the rows of one (cue, stimulus) combination.
func filterCueStimulus(rows []domain.TrialRow, cue, stimulus int) []domain.TrialRow {
	var out []domain.TrialRow
	for _, row := range rows {
		c, okC := row.Float(exclusionCueColumn)
		s, okS := row.Float(exclusionStimColumn)
		if okC && okS && int(c) == cue && int(s) == stimulus {
			out = append(out, row)
		}
	}
	return out
}

// yesResponseRate is the fraction of rows answered 's'.
func yesResponseRate(rows []domain.TrialRow) float64 {
	if len(rows) == 0 {
		return 0
	}
	yes := 0
	for _, row := range rows {
		if row.String(exclusionRespColumn) == "s" {
			yes++
		}
	}
	return float64(yes) / float64(len(rows))
}

// meanResponseRT returns the per-response latency values for 's' and 'k',
// each divided by the slice's total row count. Exact zeros are recoded to
// the missing sentinel: a zero is indistinguishable from "no such responses".
func meanResponseRT(rows []domain.TrialRow) [2]float64 {
	var out [2]float64
	for i, key := range []string{"s", "k"} {
		var sum float64
		for _, row := range rows {
			if row.String(exclusionRespColumn) != key {
				continue
			}
			if rt, ok := row.Float(exclusionRTColumn); ok {
				sum += rt
			}
		}
		mean := 0.0
		if len(rows) > 0 {
			mean = sum / float64(len(rows))
		}
		if mean == 0 {
			mean = domain.Sentinel
		}
		out[i] = mean
	}
	return out
}
