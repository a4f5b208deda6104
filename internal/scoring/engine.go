package scoring

import (
	"fmt"
	"log/slog"
	"math"

	"brainage/pkg/contracts/domain"
)

// missingRatioGate suppresses the brain-age prediction when any domain has
// more than this fraction of its features missing.
const missingRatioGate = 0.2

// adjustmentBudget is the total number of years the percentile correction
// may move the estimate away from the band median, split evenly across the
// valid domains.
const adjustmentBudget = 20.0

// percentileFloor clamps reported domain percentiles so a single noisy
// domain never shows an alarmingly low score.
const percentileFloor = 10

// ageBands bucket chronological age for correction. upper is exclusive;
// the last band is open-ended.
var ageBands = []struct {
	label  string
	upper  int
	median float64
}{
	{"<24", 24, 20},
	{"24-30", 30, 27.5},
	{"30-35", 35, 32.5},
	{"35-45", 45, 40},
	{"45-55", 55, 50},
	{"55-65", 65, 60},
	{">=65", math.MaxInt, 70},
}

func ageBand(age int) (label string, median float64) {
	for _, b := range ageBands {
		if age < b.upper {
			return b.label, b.median
		}
	}
	last := ageBands[len(ageBands)-1]
	return last.label, last.median
}

// Engine scores canonical feature records. It is immutable after
// construction and safe for concurrent use.
type Engine struct {
	artifacts *Artifacts
	useLegacy bool
	logger    *slog.Logger
}

// NewEngine creates an engine over loaded artifacts. useLegacy switches the
// age correction from the percentile method to the historical table method.
func NewEngine(artifacts *Artifacts, useLegacy bool, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{artifacts: artifacts, useLegacy: useLegacy, logger: logger}
}

// Score computes domain percentiles and the brain-age estimate for one
// subject. age is the chronological age, or domain.UnknownAge when not
// provided, in which case every numeric output collapses to "-1".
func (e *Engine) Score(subjectID string, rec domain.CanonicalFeatureRecord, age int) (*domain.ScoredResult, error) {
	if rec == nil {
		return nil, fmt.Errorf("nil feature record for %s", subjectID)
	}

	scaled, missing := e.scale(rec)

	domains, suppressed := e.domainScores(scaled, missing)

	result := &domain.ScoredResult{
		SubjectID:        subjectID,
		ChronologicalAge: age,
		BrainAge:         "-1",
		OriginalPAD:      "-1",
		AgeCorrectedPAD:  "-1",
		Domains:          domains,
		Suppressed:       suppressed,
	}
	if suppressed || age == domain.UnknownAge {
		e.logger.Info("brain-age prediction withheld",
			"subject_id", subjectID,
			"suppressed", suppressed,
			"age_known", age != domain.UnknownAge,
		)
		return result, nil
	}

	rawPrediction := e.artifacts.Model.Predict(scaled)
	corrected := e.correct(rawPrediction, age, domains)

	result.BrainAge = fmt.Sprintf("%.2f", corrected)
	result.OriginalPAD = fmt.Sprintf("%.2f", rawPrediction-float64(age))
	result.AgeCorrectedPAD = fmt.Sprintf("%.2f", corrected-float64(age))

	e.logger.Info("subject scored",
		"subject_id", subjectID,
		"age", age,
		"brain_age", result.BrainAge,
	)
	return result, nil
}

// scale builds the scaled feature lookup over the scaler's full feature set
// and the per-feature missing mask. Missing features scale to the neutral
// mid-point 0.5 so they neither penalize nor reward a domain average.
func (e *Engine) scale(rec domain.CanonicalFeatureRecord) (map[string]float64, map[string]bool) {
	scaler := e.artifacts.Scaler
	scaled := make(map[string]float64, len(scaler.Features))
	missing := make(map[string]bool, len(scaler.Features))

	for i, name := range scaler.Features {
		v, ok := rec[name]
		if !ok {
			v = domain.Sentinel
		}
		if v == domain.Sentinel || math.IsNaN(v) {
			missing[name] = true
			scaled[name] = 0.5
			continue
		}
		scaled[name] = scaler.Transform(i, v)
	}
	return scaled, missing
}

// domainScores computes the percentile of each cognitive domain and whether
// any domain's missing ratio suppresses the whole prediction.
func (e *Engine) domainScores(scaled map[string]float64, missing map[string]bool) ([]domain.DomainScore, bool) {
	suppressed := false
	scores := make([]domain.DomainScore, 0, len(domain.CognitiveDomains))

	for _, d := range domain.CognitiveDomains {
		features := domain.DomainFeatures(d)
		missingCount := 0
		var sum float64
		for _, name := range features {
			if missing[name] {
				missingCount++
			}
			sum += scaled[name]
		}

		ratio := float64(missingCount) / float64(len(features))
		if ratio > missingRatioGate {
			suppressed = true
			scores = append(scores, domain.DomainScore{Name: d, Percentile: -1})
			continue
		}

		// Feature values beyond the scaler's training range scale outside
		// [0,1]; clamp so percentiles stay within [0,100] through the motor
		// inversion below.
		mean := clamp01(sum / float64(len(features)))
		percentile := int(math.Round(mean * 100))
		if d == domain.DomainMotor {
			// Lower motor latency is better; flip so higher stays better.
			percentile = 100 - percentile
		}
		if percentile < percentileFloor {
			percentile = percentileFloor
		}
		scores = append(scores, domain.DomainScore{Name: d, Percentile: percentile})
	}
	return scores, suppressed
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// correct applies the configured age correction to the raw prediction.
func (e *Engine) correct(rawPrediction float64, age int, domains []domain.DomainScore) float64 {
	if e.useLegacy {
		return e.legacyCorrect(rawPrediction, age)
	}
	return percentileCorrect(age, domains)
}

// percentileCorrect rebuilds the estimate from the age-band median: each
// valid domain pushes the estimate up when below the 50th percentile and
// down when above, with the total budget split evenly across valid domains.
func percentileCorrect(age int, domains []domain.DomainScore) float64 {
	_, median := ageBand(age)

	var weightedSum float64
	valid := 0
	for _, d := range domains {
		if d.Percentile == -1 {
			continue
		}
		weightedSum += (50 - float64(d.Percentile)) / 50
		valid++
	}
	if valid == 0 {
		return median
	}
	return median + (adjustmentBudget/float64(valid))*weightedSum
}

// legacyCorrect z-scores the raw deviation against the band's historical
// error statistics. A band with no reference entry leaves the prediction
// uncorrected.
func (e *Engine) legacyCorrect(rawPrediction float64, age int) float64 {
	label, _ := ageBand(age)
	entry, ok := e.artifacts.Correction[label]
	if !ok || entry.SDPAD == 0 {
		return rawPrediction
	}
	pad := rawPrediction - float64(age)
	z := (pad - entry.MeanPAD) / entry.SDPAD
	return rawPrediction - z
}
