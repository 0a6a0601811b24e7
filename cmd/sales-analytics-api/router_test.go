package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/app"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/config"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/observability"
)

func newTestRouter(t *testing.T, appCfg *AppConfig) http.Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database.Driver = "memory"
	cfg.Analyzer.TempDir = t.TempDir()

	svc, err := app.Build(context.Background(), cfg, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return NewRouter(observability.NopLogger(), appCfg, svc)
}

func TestHealthAndReady(t *testing.T) {
	r := newTestRouter(t, DefaultAppConfig())

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestAnalysesRoute(t *testing.T) {
	r := newTestRouter(t, DefaultAppConfig())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "sales.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("Date,Item,Revenue\n2024-01-01,Widget,10\n2024-01-02,Gadget,20\n2024-01-03,Widget,5\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Count    int `json:"count"`
		Analyses []struct {
			TenantID string `json:"tenant_id"`
		} `json:"analyses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "dev", list.Analyses[0].TenantID)
}

func TestAuthEnabledRejectsAnonymous(t *testing.T) {
	appCfg := DefaultAppConfig()
	appCfg.AuthConfig.Enabled = true
	appCfg.AuthConfig.Tokens = []string{"s3cret"}
	r := newTestRouter(t, appCfg)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
