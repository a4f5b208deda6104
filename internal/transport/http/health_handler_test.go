package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainage/internal/integrate"
	"brainage/pkg/contracts"
	"brainage/pkg/contracts/domain"
)

func TestHealth(t *testing.T) {
	store, err := integrate.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put("S001", domain.NewCanonicalFeatureRecord()))

	handler := NewHealthHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.EqualValues(t, 1, resp["subjects"])
	assert.Equal(t, contracts.Version, resp["version"])
}

func TestVersion(t *testing.T) {
	store, err := integrate.NewStore(t.TempDir())
	require.NoError(t, err)
	handler := NewHealthHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var info contracts.VersionInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, contracts.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}
