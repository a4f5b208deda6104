// Package scoring turns a subject's canonical feature record and
// chronological age into domain percentiles and an age-corrected brain-age
// estimate, using externally trained model artifacts.
package scoring

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"brainage/pkg/contracts/domain"
)

// Artifact filenames under the configured artifacts directory.
const (
	scalerFile        = "scaler.json"
	modelFile         = "model.json"
	correctionFile    = "correction_reference.csv"
	percentileRefFile = "percentile_reference.csv"
)

// Scaler is an externally fit min-max scaler: the ordered feature list it
// expects (a superset of the platform schema, including neuroimaging
// features the pipeline never populates) and the per-feature min/max.
type Scaler struct {
	Features []string  `json:"features"`
	Min      []float64 `json:"min"`
	Max      []float64 `json:"max"`
}

// Transform maps one value of the i-th feature into [0,1].
func (s *Scaler) Transform(i int, v float64) float64 {
	span := s.Max[i] - s.Min[i]
	if span == 0 {
		return 0
	}
	return (v - s.Min[i]) / span
}

// Model is an externally trained linear regression over scaled features.
type Model struct {
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Predict evaluates the model on a scaled feature lookup.
func (m *Model) Predict(scaled map[string]float64) float64 {
	sum := m.Intercept
	for i, name := range m.Features {
		sum += m.Coefficients[i] * scaled[name]
	}
	return sum
}

// CorrectionEntry is one age band's historical prediction-error statistics,
// used by the legacy table correction.
type CorrectionEntry struct {
	MeanPAD float64
	SDPAD   float64
}

// Artifacts bundles every externally produced file the engine needs. Loaded
// once at startup, read-only afterwards.
type Artifacts struct {
	Scaler     *Scaler
	Model      *Model
	Correction map[string]CorrectionEntry
}

// LoadArtifacts reads and validates the artifact files under dir.
func LoadArtifacts(dir string) (*Artifacts, error) {
	scaler, err := loadScaler(filepath.Join(dir, scalerFile))
	if err != nil {
		return nil, err
	}
	model, err := loadModel(filepath.Join(dir, modelFile), scaler)
	if err != nil {
		return nil, err
	}
	correction, err := loadCorrection(filepath.Join(dir, correctionFile))
	if err != nil {
		return nil, err
	}
	if err := validatePercentileReference(filepath.Join(dir, percentileRefFile)); err != nil {
		return nil, err
	}
	return &Artifacts{Scaler: scaler, Model: model, Correction: correction}, nil
}

func loadScaler(path string) (*Scaler, error) {
	var s Scaler
	if err := readJSON(path, &s); err != nil {
		return nil, err
	}
	if len(s.Features) == 0 {
		return nil, fmt.Errorf("scaler %s: empty feature list", path)
	}
	if len(s.Min) != len(s.Features) || len(s.Max) != len(s.Features) {
		return nil, fmt.Errorf("scaler %s: min/max length %d/%d does not match %d features",
			path, len(s.Min), len(s.Max), len(s.Features))
	}

	known := make(map[string]struct{}, len(s.Features))
	for _, name := range s.Features {
		known[name] = struct{}{}
	}
	for _, name := range domain.PlatformFeatures {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("scaler %s: platform feature %s not covered", path, name)
		}
	}
	return &s, nil
}

func loadModel(path string, scaler *Scaler) (*Model, error) {
	var m Model
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	if len(m.Coefficients) != len(m.Features) {
		return nil, fmt.Errorf("model %s: %d coefficients for %d features",
			path, len(m.Coefficients), len(m.Features))
	}

	known := make(map[string]struct{}, len(scaler.Features))
	for _, name := range scaler.Features {
		known[name] = struct{}{}
	}
	for _, name := range m.Features {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("model %s: feature %s not covered by the scaler", path, name)
		}
	}
	return &m, nil
}

// loadCorrection reads the legacy per-band correction table. The table is
// optional: the percentile method does not use it.
func loadCorrection(path string) (map[string]CorrectionEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]CorrectionEntry{}, nil
		}
		return nil, fmt.Errorf("open correction table: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse correction table %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("correction table %s is empty", path)
	}

	idx := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"band", "mean_pad", "sd_pad"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("correction table %s missing column %s", path, required)
		}
	}

	table := make(map[string]CorrectionEntry, len(records)-1)
	for _, record := range records[1:] {
		mean, err := strconv.ParseFloat(strings.TrimSpace(record[idx["mean_pad"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("correction table %s: bad mean %q: %w", path, record[idx["mean_pad"]], err)
		}
		sd, err := strconv.ParseFloat(strings.TrimSpace(record[idx["sd_pad"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("correction table %s: bad sd %q: %w", path, record[idx["sd_pad"]], err)
		}
		table[strings.TrimSpace(record[idx["band"]])] = CorrectionEntry{MeanPAD: mean, SDPAD: sd}
	}
	return table, nil
}

// validatePercentileReference checks that the reference distribution file
// carries a column per cognitive domain. The scoring math itself does not
// consume the distributions; the check catches artifact/schema drift early.
func validatePercentileReference(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open percentile reference: %w", err)
	}
	defer file.Close()

	header, err := csv.NewReader(file).Read()
	if err != nil {
		return fmt.Errorf("read percentile reference header %s: %w", path, err)
	}
	columns := make(map[string]struct{}, len(header))
	for _, name := range header {
		columns[strings.TrimSpace(name)] = struct{}{}
	}
	for _, d := range domain.CognitiveDomains {
		if _, ok := columns[string(d)]; !ok {
			return fmt.Errorf("percentile reference %s missing domain column %s", path, d)
		}
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return nil
}
