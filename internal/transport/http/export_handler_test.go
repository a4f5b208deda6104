package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainage/internal/exporter"
	"brainage/internal/integrate"
	"brainage/pkg/contracts/domain"
)

func TestExportFeatures(t *testing.T) {
	store, err := integrate.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put("S001", domain.NewCanonicalFeatureRecord()))

	handler := NewExportHandler(exporter.NewFeatureMatrix(store, testLogger()), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/features.xlsx", nil)
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, rr.Body.Len())
}
