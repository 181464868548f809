package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/causewaylabs/crossingd/internal/border"
	"github.com/causewaylabs/crossingd/internal/config"
	"github.com/causewaylabs/crossingd/internal/model"
	"github.com/causewaylabs/crossingd/internal/prediction"
	"github.com/causewaylabs/crossingd/internal/storage/sqlite"
	"github.com/causewaylabs/crossingd/pkg/logger"
)

// Handler serves the API endpoints, delegating all work to the prediction
// service facade.
type Handler struct {
	service *prediction.Service
	config  *config.Config
	logger  *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(service *prediction.Service, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		config:  cfg,
		logger:  log.Named("api-handler"),
	}
}

// Predict handles POST /predict
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req prediction.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.service.PredictOne(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// simulateRequest is the POST /simulate body
type simulateRequest struct {
	prediction.PredictRequest
	Variants []prediction.Variant `json:"variants"`
}

// Simulate handles POST /simulate
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	results, err := h.service.PredictMany(r.Context(), req.PredictRequest, req.Variants)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"predictions": results})
}

// WaitTime handles GET /wait-time
func (h *Handler) WaitTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var at time.Time
	if raw := q.Get("datetime"); raw != "" {
		t, err := time.ParseInLocation("2006-01-02T15:04", raw, border.Location)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid datetime, expected YYYY-MM-DDTHH:MM")
			return
		}
		at = t
	}

	estimate, err := h.service.WaitTime(q.Get("checkpoint"), q.Get("origin"), q.Get("destination"), at)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, estimate)
}

// SubmitCrossing handles POST /crossings
func (h *Handler) SubmitCrossing(w http.ResponseWriter, r *http.Request) {
	var req prediction.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := h.service.SubmitCrossing(req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

// RecentCrossings handles GET /crossings
func (h *Handler) RecentCrossings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	records, err := h.service.RecentCrossings(
		q.Get("checkpoint"),
		intParam(q.Get("hours"), 24),
		intParam(q.Get("limit"), 100),
	)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []*sqlite.CrossingRecord{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"crossings": records})
}

// StoreStats handles GET /stats
func (h *Handler) StoreStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.StoreStats()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"model_loaded": h.service.ModelLoaded(),
	})
}

// GetConfig handles GET /config, exposing non-secret configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"patterns":   h.config.Patterns,
		"prediction": h.config.Prediction,
	})
}

// writeServiceError maps service failures onto HTTP statuses: validation
// errors are the caller's fault, schema mismatches are deployment bugs and
// logged loudly, everything else is a generic internal failure.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case prediction.IsValidation(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrSchemaMismatch):
		h.logger.Error("Model schema mismatch", logger.Error(err))
		h.writeError(w, http.StatusInternalServerError, "model/feature schema mismatch")
	default:
		h.logger.Error("Request failed", logger.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
