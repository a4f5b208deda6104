package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainage/internal/integrate"
	"brainage/internal/scoring"
	"brainage/internal/services"
	v1 "brainage/pkg/contracts/api/v1"
	"brainage/pkg/contracts/domain"
)

func newScoringFixture(t *testing.T) (*ScoringHandler, *integrate.Store) {
	t.Helper()

	store, err := integrate.NewStore(t.TempDir())
	require.NoError(t, err)

	n := len(domain.PlatformFeatures)
	scaler := &scoring.Scaler{
		Features: domain.PlatformFeatures,
		Min:      make([]float64, n),
		Max:      make([]float64, n),
	}
	for i := range scaler.Max {
		scaler.Max[i] = 1
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
	engine := scoring.NewEngine(artifacts, false, testLogger())
	service := services.NewScoringService(engine, store, testLogger())
	return NewScoringHandler(service, 412, testLogger()), store
}

func completeRecord(value float64) domain.CanonicalFeatureRecord {
	rec := domain.NewCanonicalFeatureRecord()
	for _, name := range domain.PlatformFeatures {
		rec[name] = value
	}
	return rec
}

func TestPredict(t *testing.T) {
	handler, store := newScoringFixture(t)
	require.NoError(t, store.Put("S001", completeRecord(0.5)))

	rr := postJSON(t, handler.Routes(), "/predict", map[string]any{
		"age": 30, "id_card": "S001", "name": "test", "test_date": "2026-01-15",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp v1.PredictResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	assert.Equal(t, "S001", resp.IDCard)
	assert.Equal(t, 30, resp.Results.ChronologicalAge)
	// All domains sit at the 50th percentile, so the corrected estimate is
	// exactly the 30-35 band median.
	assert.Equal(t, "32.50", resp.Results.BrainAge)
	assert.Equal(t, "25.00", resp.Results.OriginalPAD)
	assert.Equal(t, "2.50", resp.Results.AgeCorrectedPAD)
	require.Len(t, resp.CognitiveFunctions, 5)
	for _, fn := range resp.CognitiveFunctions {
		assert.Equal(t, 50, fn.Score, fn.Name)
	}
	assert.Equal(t, 412, resp.Meta.TotalParticipants)
}

func TestPredict_SuppressedRecord(t *testing.T) {
	handler, store := newScoringFixture(t)
	require.NoError(t, store.Put("S001", domain.NewCanonicalFeatureRecord()))

	rr := postJSON(t, handler.Routes(), "/predict", map[string]any{
		"age": 30, "id_card": "S001", "name": "test", "test_date": "2026-01-15",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp v1.PredictResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "-1", resp.Results.BrainAge)
	for _, fn := range resp.CognitiveFunctions {
		assert.Equal(t, -1, fn.Score, fn.Name)
	}
}

func TestPredict_UnknownSubject(t *testing.T) {
	handler, _ := newScoringFixture(t)
	rr := postJSON(t, handler.Routes(), "/predict", map[string]any{
		"age": 30, "id_card": "S404", "name": "test", "test_date": "2026-01-15",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPredict_InvalidRequest(t *testing.T) {
	handler, _ := newScoringFixture(t)

	// Missing name fails validation.
	rr := postJSON(t, handler.Routes(), "/predict", map[string]any{
		"age": 30, "id_card": "S001", "test_date": "2026-01-15",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Age below the unknown-age marker fails validation.
	rr = postJSON(t, handler.Routes(), "/predict", map[string]any{
		"age": -5, "id_card": "S001", "name": "test", "test_date": "2026-01-15",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
