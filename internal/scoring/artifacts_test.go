package scoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainage/pkg/contracts/domain"
)

func writeArtifact(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o644))
}

func writeValidArtifacts(t *testing.T, dir string) {
	t.Helper()

	scaler := Scaler{Features: append([]string{}, domain.PlatformFeatures...)}
	for range scaler.Features {
		scaler.Min = append(scaler.Min, 0)
		scaler.Max = append(scaler.Max, 100)
	}
	data, err := json.Marshal(scaler)
	require.NoError(t, err)
	writeArtifact(t, dir, scalerFile, data)

	model := Model{
		Features:     []string{"MEMORY_OSPAN_BEH_LETTER_ACCURACY", "MEMORY_OSPAN_BEH_MATH_ACCURACY"},
		Coefficients: []float64{1.5, -2},
		Intercept:    40,
	}
	data, err = json.Marshal(model)
	require.NoError(t, err)
	writeArtifact(t, dir, modelFile, data)

	writeArtifact(t, dir, correctionFile, []byte(
		"band,mean_pad,sd_pad\n<24,-1.2,3.4\n>=65,2.1,4.5\n"))

	domains := make([]string, 0, len(domain.CognitiveDomains))
	for _, d := range domain.CognitiveDomains {
		domains = append(domains, string(d))
	}
	writeArtifact(t, dir, percentileRefFile, []byte(strings.Join(domains, ",")+"\n"))
}

func TestLoadArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeValidArtifacts(t, dir)

	a, err := LoadArtifacts(dir)
	require.NoError(t, err)

	assert.Len(t, a.Scaler.Features, len(domain.PlatformFeatures))
	assert.InDelta(t, 0.25, a.Scaler.Transform(0, 25), 1e-9)
	assert.Equal(t, 40.0, a.Model.Predict(map[string]float64{
		"MEMORY_OSPAN_BEH_LETTER_ACCURACY": 0,
		"MEMORY_OSPAN_BEH_MATH_ACCURACY":   0,
	}))
	assert.Contains(t, a.Correction, ">=65")
	assert.Equal(t, CorrectionEntry{MeanPAD: -1.2, SDPAD: 3.4}, a.Correction["<24"])
}

func TestLoadArtifacts_ScalerMustCoverPlatformSchema(t *testing.T) {
	dir := t.TempDir()
	writeValidArtifacts(t, dir)

	scaler := Scaler{
		Features: []string{"MEMORY_OSPAN_BEH_MATH_ACCURACY"},
		Min:      []float64{0},
		Max:      []float64{1},
	}
	data, err := json.Marshal(scaler)
	require.NoError(t, err)
	writeArtifact(t, dir, scalerFile, data)

	_, err = LoadArtifacts(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not covered")
}

func TestLoadArtifacts_ModelFeaturesMustBeScaled(t *testing.T) {
	dir := t.TempDir()
	writeValidArtifacts(t, dir)

	model := Model{Features: []string{"UNKNOWN"}, Coefficients: []float64{1}}
	data, err := json.Marshal(model)
	require.NoError(t, err)
	writeArtifact(t, dir, modelFile, data)

	_, err = LoadArtifacts(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not covered by the scaler")
}

func TestLoadArtifacts_PercentileReferenceColumns(t *testing.T) {
	dir := t.TempDir()
	writeValidArtifacts(t, dir)
	writeArtifact(t, dir, percentileRefFile, []byte("working_memory,motor\n"))

	_, err := LoadArtifacts(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing domain column")
}

func TestLoadArtifacts_OptionalFilesMayBeAbsent(t *testing.T) {
	dir := t.TempDir()
	writeValidArtifacts(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, correctionFile)))
	require.NoError(t, os.Remove(filepath.Join(dir, percentileRefFile)))

	a, err := LoadArtifacts(dir)
	require.NoError(t, err)
	assert.Empty(t, a.Correction)
}

func TestScalerTransform_ConstantFeature(t *testing.T) {
	s := &Scaler{Features: []string{"f"}, Min: []float64{3}, Max: []float64{3}}
	assert.Zero(t, s.Transform(0, 3))
}
