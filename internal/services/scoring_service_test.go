package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainage/internal/integrate"
	"brainage/internal/scoring"
	"brainage/pkg/contracts/domain"
)

func scoringFixture(t *testing.T) (*ScoringService, *integrate.Store) {
	t.Helper()

	features := append([]string{}, domain.PlatformFeatures...)
	scaler := &scoring.Scaler{Features: features}
	for range features {
		scaler.Min = append(scaler.Min, 0)
		scaler.Max = append(scaler.Max, 1)
	}
	artifacts := &scoring.Artifacts{
		Scaler: scaler,
		Model: &scoring.Model{
			Features:     []string{"MEMORY_OSPAN_BEH_LETTER_ACCURACY"},
			Coefficients: []float64{10},
			Intercept:    50,
		},
		Correction: map[string]scoring.CorrectionEntry{},
	}

	store, err := integrate.NewStore(t.TempDir())
	require.NoError(t, err)
	return NewScoringService(scoring.NewEngine(artifacts, false, nil), store, nil), store
}

func TestScoringService_Predict(t *testing.T) {
	svc, store := scoringFixture(t)

	rec := domain.NewCanonicalFeatureRecord()
	for _, name := range domain.PlatformFeatures {
		rec[name] = 0.5
	}
	require.NoError(t, store.Put("S001", rec))

	result, err := svc.Predict(context.Background(), "S001", 70)
	require.NoError(t, err)
	assert.Equal(t, "70.00", result.BrainAge)
	assert.False(t, result.Suppressed)
	assert.Len(t, result.Domains, 5)
}

func TestScoringService_UnknownSubject(t *testing.T) {
	svc, _ := scoringFixture(t)

	_, err := svc.Predict(context.Background(), "S404", 40)
	assert.ErrorIs(t, err, integrate.ErrRecordNotFound)
}
