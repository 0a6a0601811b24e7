// Package handlers provides HTTP handlers for the sales analytics API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/spherical-ai/spherical/libs/sales-analytics/cmd/sales-analytics-api/middleware"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/analyzer"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/cache"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/observability"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/sanitize"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/store"
)

// Multipart form fields accepted by Create.
const (
	FieldFile          = "file"
	FieldReturnsFile   = "returns_file"
	FieldPlatform      = "platform"
	FieldColumnMapping = "column_mapping"
)

const multipartMemory = 32 << 20

// AnalysesHandler handles analysis uploads and stored analysis records.
type AnalysesHandler struct {
	logger    *observability.Logger
	analyzer  *analyzer.Analyzer
	store     store.Store
	cache     *cache.Analyses
	maxUpload int64
}

// NewAnalysesHandler creates a new analyses handler. analyses may be nil.
func NewAnalysesHandler(logger *observability.Logger, a *analyzer.Analyzer, s store.Store, analyses *cache.Analyses, maxUpload int64) *AnalysesHandler {
	return &AnalysesHandler{
		logger:    logger.WithOperation("analyses"),
		analyzer:  a,
		store:     s,
		cache:     analyses,
		maxUpload: maxUpload,
	}
}

// AnalysisDTO is the output envelope plus the stored record ID.
type AnalysisDTO struct {
	ID     string `json:"id,omitempty"`
	Cached bool   `json:"cached,omitempty"`
	*analyzer.Response
}

// ListResponseDTO is the body of GET /analyses.
type ListResponseDTO struct {
	Analyses []*store.Record `json:"analyses"`
	Count    int             `json:"count"`
}

// Create handles POST /api/v1/analyses.
func (h *AnalysesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.TenantFromContext(ctx)
	logger := h.logger.WithContext(ctx).WithTenant(tenantID)

	if h.maxUpload > 0 {
		if r.ContentLength > h.maxUpload {
			h.writeFailure(w, http.StatusRequestEntityTooLarge,
				fmt.Errorf("upload exceeds the %d byte limit", h.maxUpload))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeFailure(w, http.StatusRequestEntityTooLarge,
				fmt.Errorf("upload exceeds the %d byte limit", tooLarge.Limit))
			return
		}
		h.writeFailure(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	req, err := buildRequest(r)
	if err != nil {
		h.writeFailure(w, http.StatusBadRequest, err)
		return
	}

	fingerprint := req.Fingerprint()
	if h.cache != nil && fingerprint != "" {
		var cached AnalysisDTO
		if err := h.cache.Get(ctx, tenantID, fingerprint, &cached); err == nil && cached.Response != nil {
			cached.Cached = true
			logger.Debug().Str("id", cached.ID).Msg("serving cached analysis")
			h.writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	resp, err := h.analyzer.Analyze(ctx, req)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		case errors.Is(err, context.Canceled):
			status = http.StatusServiceUnavailable
		default:
			if _, ok := analyzer.AsError(err); ok {
				status = http.StatusBadRequest
			}
		}
		logger.Warn().Err(err).Int("status", status).Msg("analysis failed")
		h.writeFailure(w, status, err)
		return
	}

	out := AnalysisDTO{Response: resp}
	if id, err := h.save(ctx, tenantID, req, resp); err != nil {
		logger.Error().Err(err).Msg("failed to save analysis")
	} else {
		out.ID = id
	}

	if h.cache != nil && fingerprint != "" {
		if err := h.cache.Put(ctx, tenantID, fingerprint, out); err != nil {
			logger.Warn().Err(err).Msg("failed to cache analysis")
		}
	}

	h.writeJSON(w, http.StatusCreated, out)
}

// List handles GET /api/v1/analyses.
func (h *AnalysesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := h.store.List(ctx, middleware.TenantFromContext(ctx), limit)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("failed to list analyses")
		h.writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	if records == nil {
		records = []*store.Record{}
	}
	h.writeJSON(w, http.StatusOK, ListResponseDTO{Analyses: records, Count: len(records)})
}

// Get handles GET /api/v1/analyses/{analysisId}.
func (h *AnalysesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.store.Get(ctx, middleware.TenantFromContext(ctx), chi.URLParam(r, "analysisId"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/v1/analyses/{analysisId}.
func (h *AnalysesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.TenantFromContext(ctx)

	if err := h.store.Delete(ctx, tenantID, chi.URLParam(r, "analysisId")); err != nil {
		h.storeError(w, r, err)
		return
	}

	// Cached envelopes carry record IDs, so they go with the record.
	if h.cache != nil {
		if err := h.cache.Purge(ctx, tenantID); err != nil {
			h.logger.WithContext(ctx).Warn().Err(err).Msg("failed to purge analysis cache")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AnalysesHandler) save(ctx context.Context, tenantID string, req analyzer.Request, resp *analyzer.Response) (string, error) {
	doc, err := sanitize.Marshal(resp)
	if err != nil {
		return "", err
	}
	rec := &store.Record{
		TenantID:    tenantID,
		Filename:    req.Filename,
		Platform:    resp.Platform,
		Fingerprint: resp.Fingerprint,
		Document:    doc,
	}
	if err := h.store.Save(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// buildRequest reads the multipart fields into an analyzer request. A missing
// file is left for the analyzer to reject.
func buildRequest(r *http.Request) (analyzer.Request, error) {
	var req analyzer.Request

	up, err := readPart(r, FieldFile)
	if err != nil {
		return req, err
	}
	if up != nil {
		req.Upload = *up
	}

	if req.Returns, err = readPart(r, FieldReturnsFile); err != nil {
		return req, err
	}

	req.Platform = r.FormValue(FieldPlatform)

	if raw := r.FormValue(FieldColumnMapping); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Overrides); err != nil {
			return req, fmt.Errorf("column_mapping must be a JSON object of role to column: %w", err)
		}
	}
	return req, nil
}

func readPart(r *http.Request, field string) (*analyzer.Upload, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return &analyzer.Upload{Data: data, Filename: hdr.Filename}, nil
}

func (h *AnalysesHandler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	h.logger.WithContext(r.Context()).Error().Err(err).Msg("store operation failed")
	h.writeError(w, http.StatusInternalServerError, "store operation failed")
}

func (h *AnalysesHandler) writeFailure(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, analyzer.Failure(err))
}

func (h *AnalysesHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

func (h *AnalysesHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn().Err(err).Msg("failed to write response")
	}
}
